package embedding

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/crypto/blake2b"
)

// Hash is a local embedder using the hashing trick over word unigrams and
// character trigrams. It needs no network and is deterministic, so similar
// wording gives similar vectors but synonyms do not.
type Hash struct {
	dims int
}

func NewHash(dims int) *Hash {
	return &Hash{dims: dims}
}

func (h *Hash) Model() string { return fmt.Sprintf("hash-%d", h.dims) }

func (h *Hash) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *Hash) vector(text string) []float32 {
	v := make([]float32, h.dims)
	for _, word := range tokenize(text) {
		h.add(v, "w:"+word, 1)
		padded := " " + word + " "
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			h.add(v, "t:"+string(runes[i:i+3]), 0.5)
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

// add hashes a feature to a bucket and a sign.
func (h *Hash) add(v []float32, feature string, weight float32) {
	sum := blake2b.Sum256([]byte(feature))
	n := binary.LittleEndian.Uint64(sum[:8])
	bucket := int(n % uint64(h.dims))
	if sum[8]&1 == 1 {
		weight = -weight
	}
	v[bucket] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
