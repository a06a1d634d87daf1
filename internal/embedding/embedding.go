// Package embedding turns item text into vectors for semantic search.
package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/hisa/internal/apperr"
)

// Embedder produces one vector per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Model names the model, so stored vectors can be invalidated when it
	// changes.
	Model() string
}

// Options selects and configures a provider.
type Options struct {
	Provider   string // openai, ollama or hash
	URL        string
	Model      string
	APIKey     string
	Dimensions int
	Timeout    time.Duration
}

// New returns the embedder named by opts.Provider. Bad settings come back as
// a *apperr.ConfigurationError.
func New(opts Options) (Embedder, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: opts.Timeout}

	switch strings.ToLower(opts.Provider) {
	case "openai":
		if opts.APIKey == "" {
			return nil, &apperr.ConfigurationError{Component: "search", Reason: "openai provider needs an API key"}
		}
		if opts.URL == "" {
			opts.URL = "https://api.openai.com/v1"
		}
		if opts.Model == "" {
			opts.Model = "text-embedding-3-small"
		}
		return NewOpenAI(opts.URL, opts.Model, opts.APIKey, client), nil
	case "ollama":
		if opts.URL == "" {
			opts.URL = "http://localhost:11434"
		}
		if opts.Model == "" {
			opts.Model = "nomic-embed-text"
		}
		return NewOllama(opts.URL, opts.Model, client), nil
	case "hash", "":
		if opts.Dimensions <= 0 {
			return nil, &apperr.ConfigurationError{Component: "search", Reason: "hash provider needs positive dimensions"}
		}
		return NewHash(opts.Dimensions), nil
	}
	return nil, &apperr.ConfigurationError{
		Component: "search",
		Reason:    fmt.Sprintf("unknown embedding provider %q", opts.Provider),
	}
}
