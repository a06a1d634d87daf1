package service

import (
	"context"
	"strings"

	"github.com/erazemk/hisa/internal/apperr"
	"github.com/erazemk/hisa/internal/model"
	"github.com/erazemk/hisa/internal/search"
	"github.com/erazemk/hisa/internal/store"
)

// Search backends reported in results.
const (
	BackendSemantic = "semantic"
	BackendText     = "text"
)

// DefaultSearchLimit applies when a query does not set one.
const DefaultSearchLimit = 20

// SearchQuery is a free-text item search.
type SearchQuery struct {
	Text       string
	Type       model.ItemType
	Status     model.Status
	CategoryID int64
	Limit      int
	// MinSimilarity overrides the configured threshold when set.
	MinSimilarity *float64
}

// SearchHit is one matching item. Score is nil for text matches.
type SearchHit struct {
	Item  model.Item `json:"item"`
	Score *float64   `json:"score,omitempty"`
}

// SearchResult reports which backend answered.
type SearchResult struct {
	Backend string      `json:"backend"`
	Hits    []SearchHit `json:"hits"`
}

// Search ranks items by semantic similarity when the index is available and
// falls back to substring matching when it is not, fails or times out.
func (s *Service) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, apperr.Invalid("q", "is required")
	}
	if q.Limit <= 0 {
		q.Limit = DefaultSearchLimit
	}
	minSim := s.minSimilarity
	if q.MinSimilarity != nil {
		minSim = *q.MinSimilarity
	}
	if minSim < 0 || minSim > 1 {
		return nil, apperr.Invalid("min_similarity", "must be between 0 and 1")
	}

	if s.index != nil {
		res, err := s.semantic(ctx, q, minSim)
		if err == nil {
			s.metrics.SearchQuery(BackendSemantic)
			return res, nil
		}
		s.logger.Warn("semantic search failed, falling back to text", "error", err)
	}

	items, err := s.store.SearchItemsText(ctx, q.Text, store.ItemFilter{
		Type:       q.Type,
		Status:     q.Status,
		CategoryID: q.CategoryID,
		Limit:      q.Limit,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.SearchQuery(BackendText)
	res := &SearchResult{Backend: BackendText, Hits: make([]SearchHit, 0, len(items))}
	for _, it := range items {
		res.Hits = append(res.Hits, SearchHit{Item: it})
	}
	return res, nil
}

func (s *Service) semantic(ctx context.Context, q SearchQuery, minSim float64) (*SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.searchTimeout)
	defer cancel()

	hits, err := s.index.Query(ctx, q.Text, search.Filter{
		Type:       q.Type,
		Status:     q.Status,
		CategoryID: q.CategoryID,
	}, q.Limit, minSim)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(hits))
	scores := make(map[int64]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.ItemID
		scores[h.ItemID] = h.Score
	}
	items, err := s.store.ItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	res := &SearchResult{Backend: BackendSemantic, Hits: make([]SearchHit, 0, len(items))}
	for _, it := range items {
		score := scores[it.ID]
		res.Hits = append(res.Hits, SearchHit{Item: it, Score: &score})
	}
	return res, nil
}
