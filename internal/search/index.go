// Package search keeps item embeddings in the database and ranks items by
// cosine similarity to a query.
package search

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/viant/vec/search"
	"golang.org/x/crypto/blake2b"

	"github.com/erazemk/hisa/internal/db"
	"github.com/erazemk/hisa/internal/embedding"
	"github.com/erazemk/hisa/internal/model"
)

// Hit is one ranked result.
type Hit struct {
	ItemID int64   `json:"item_id"`
	Score  float64 `json:"score"`
}

// Filter narrows a query. Zero fields match everything. Inactive items are
// never returned.
type Filter struct {
	Type       model.ItemType
	Status     model.Status
	CategoryID int64
}

// Index is the vector table plus the embedder that fills it.
type Index struct {
	db       *db.DB
	embedder embedding.Embedder
	now      func() time.Time
}

// NewIndex returns an index over database using embedder.
func NewIndex(database *db.DB, embedder embedding.Embedder) *Index {
	return &Index{
		db:       database,
		embedder: embedder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Document renders the text embedded for an item.
func Document(it *model.Item) string {
	parts := []string{it.Name, it.Description, it.Brand, it.Model, string(it.Type), it.Color,
		strings.ReplaceAll(it.Tags, ",", " "), it.Notes}
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

func contentHash(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Upsert embeds an item and stores its vector. It does nothing when the
// stored vector was computed from the same text by the same model.
func (x *Index) Upsert(ctx context.Context, it *model.Item) error {
	text := Document(it)
	hash := contentHash(text)

	var storedModel, storedHash string
	err := x.db.QueryRowContext(ctx, x.db.Dialect.Rebind(
		`SELECT model, content_hash FROM item_vectors WHERE item_id = ?`), it.ID,
	).Scan(&storedModel, &storedHash)
	if err == nil && storedModel == x.embedder.Model() && storedHash == hash {
		return nil
	}

	vectors, err := x.embedder.Embed(ctx, []string{text})
	if err != nil {
		return fmt.Errorf("embedding item %d: %w", it.ID, err)
	}
	vec := vectors[0]

	_, err = x.db.ExecContext(ctx, x.db.Dialect.Rebind(
		`INSERT INTO item_vectors (item_id, model, content_hash, dimensions, embedding, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (item_id) DO UPDATE SET model = excluded.model, content_hash = excluded.content_hash,
		   dimensions = excluded.dimensions, embedding = excluded.embedding, updated_at = excluded.updated_at`),
		it.ID, x.embedder.Model(), hash, len(vec), encodeVector(vec), x.now(),
	)
	if err != nil {
		return fmt.Errorf("storing vector for item %d: %w", it.ID, err)
	}
	return nil
}

// Remove deletes an item's vector.
func (x *Index) Remove(ctx context.Context, itemID int64) error {
	_, err := x.db.ExecContext(ctx, x.db.Dialect.Rebind(`DELETE FROM item_vectors WHERE item_id = ?`), itemID)
	if err != nil {
		return fmt.Errorf("removing vector for item %d: %w", itemID, err)
	}
	return nil
}

// Query ranks active items by similarity to text and returns at most limit
// hits scoring at least minSimilarity, best first.
func (x *Index) Query(ctx context.Context, text string, f Filter, limit int, minSimilarity float64) ([]Hit, error) {
	vectors, err := x.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	query := search.Float32s(vectors[0])
	if query.Magnitude() == 0 {
		return nil, nil
	}

	where := []string{`v.model = ?`, `v.dimensions = ?`, `i.active = TRUE`}
	args := []any{x.embedder.Model(), len(query)}
	if f.Type != "" {
		where = append(where, `i.type = ?`)
		args = append(args, f.Type)
	}
	if f.Status != "" {
		where = append(where, `i.status = ?`)
		args = append(args, f.Status)
	}
	if f.CategoryID != 0 {
		where = append(where, `i.category_id = ?`)
		args = append(args, f.CategoryID)
	}

	rows, err := x.db.QueryContext(ctx, x.db.Dialect.Rebind(
		`SELECT v.item_id, v.embedding FROM item_vectors v JOIN items i ON i.id = v.item_id WHERE `+
			strings.Join(where, ` AND `)), args...)
	if err != nil {
		return nil, fmt.Errorf("loading vectors: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			id   int64
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", id, err)
		}
		if search.Float32s(vec).Magnitude() == 0 {
			continue
		}
		score := 1 - float64(query.CosineDistance(vec))
		if score >= minSimilarity {
			hits = append(hits, Hit{ItemID: id, Score: score})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading vectors: %w", err)
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].ItemID < hits[b].ItemID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
