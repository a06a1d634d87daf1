package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/hisa/internal/db"
	"github.com/erazemk/hisa/internal/embedding"
	"github.com/erazemk/hisa/internal/model"
	"github.com/erazemk/hisa/internal/store"
)

func setup(t *testing.T) (*store.Store, *Index) {
	t.Helper()
	database := db.NewTestDB(t)
	return store.New(database), NewIndex(database, embedding.NewHash(128))
}

func create(t *testing.T, s *store.Store, in model.ItemInput) *model.Item {
	t.Helper()
	it, err := s.CreateItem(context.Background(), in)
	require.NoError(t, err)
	return it
}

func TestQueryRanksBySimilarity(t *testing.T) {
	s, idx := setup(t)
	ctx := context.Background()

	drill := create(t, s, model.ItemInput{Name: "Cordless drill", Type: "tools", Brand: "Bosch"})
	hose := create(t, s, model.ItemInput{Name: "Garden hose", Type: "other"})
	driver := create(t, s, model.ItemInput{Name: "Drill driver bits", Type: "tools"})
	for _, it := range []*model.Item{drill, hose, driver} {
		require.NoError(t, idx.Upsert(ctx, it))
	}

	hits, err := idx.Query(ctx, "bosch cordless drill", Filter{}, 10, 0.1)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, drill.ID, hits[0].ItemID)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}

	hits, err = idx.Query(ctx, "drill", Filter{Type: model.ItemTypeOther}, 10, 0)
	require.NoError(t, err)
	for _, h := range hits {
		assert.Equal(t, hose.ID, h.ItemID)
	}

	hits, err = idx.Query(ctx, "drill", Filter{}, 1, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestQuerySkipsInactiveAndRemoved(t *testing.T) {
	s, idx := setup(t)
	ctx := context.Background()

	drill := create(t, s, model.ItemInput{Name: "Drill"})
	saw := create(t, s, model.ItemInput{Name: "Drill press"})
	require.NoError(t, idx.Upsert(ctx, drill))
	require.NoError(t, idx.Upsert(ctx, saw))

	_, err := s.SoftDeleteItem(ctx, saw.ID, "", nil)
	require.NoError(t, err)
	hits, err := idx.Query(ctx, "drill", Filter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, drill.ID, hits[0].ItemID)

	require.NoError(t, idx.Remove(ctx, drill.ID))
	hits, err = idx.Query(ctx, "drill", Filter{}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

type countingEmbedder struct {
	embedding.Embedder
	mu    sync.Mutex
	calls int
	fail  bool
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.calls++
	fail := c.fail
	c.mu.Unlock()
	if fail {
		return nil, errors.New("provider down")
	}
	return c.Embedder.Embed(ctx, texts)
}

func TestUpsertSkipsUnchangedText(t *testing.T) {
	database := db.NewTestDB(t)
	s := store.New(database)
	emb := &countingEmbedder{Embedder: embedding.NewHash(32)}
	idx := NewIndex(database, emb)
	ctx := context.Background()

	it := create(t, s, model.ItemInput{Name: "Drill"})
	require.NoError(t, idx.Upsert(ctx, it))
	require.NoError(t, idx.Upsert(ctx, it))
	assert.Equal(t, 1, emb.calls)

	it.Name = "Hammer drill"
	require.NoError(t, idx.Upsert(ctx, it))
	assert.Equal(t, 2, emb.calls)

	emb.fail = true
	_, err := idx.Query(ctx, "drill", Filter{}, 5, 0)
	assert.Error(t, err)
}

func TestSyncerIndexesInBackground(t *testing.T) {
	s, idx := setup(t)
	ctx := context.Background()

	syncer := NewSyncer(idx, 8)
	var (
		mu  sync.Mutex
		ops []string
	)
	syncer.OnResult = func(op string, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.NoError(t, err)
		ops = append(ops, op)
	}
	go syncer.Run(ctx)

	drill := create(t, s, model.ItemInput{Name: "Drill"})
	syncer.ItemChanged(drill)
	drill.Active = false
	syncer.ItemChanged(drill)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	syncer.Stop(stopCtx)

	assert.Equal(t, []string{"upsert", "remove"}, ops)

	// Changes after Stop are dropped, not panics.
	syncer.ItemRemoved(drill.ID)
	assert.Equal(t, uint64(1), syncer.Dropped())
}

func TestSyncerStartDrainsAfterShutdownSignal(t *testing.T) {
	s, idx := setup(t)
	signalCtx, signal := context.WithCancel(context.Background())

	syncer := NewSyncer(idx, 64)
	var processed atomic.Int64
	syncer.OnResult = func(op string, err error) {
		assert.NoError(t, err)
		processed.Add(1)
	}
	stop := syncer.Start()

	var items []*model.Item
	for i := 0; i < 50; i++ {
		items = append(items, create(t, s, model.ItemInput{Name: fmt.Sprintf("Box %d", i)}))
	}
	for _, it := range items {
		syncer.ItemChanged(it)
	}

	signal()
	<-signalCtx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stop(stopCtx)

	assert.Equal(t, int64(50), processed.Load())
	hits, err := idx.Query(context.Background(), "Box 49", Filter{}, 100, -1)
	require.NoError(t, err)
	assert.Len(t, hits, 50)
}

func TestSyncerDropsWhenFull(t *testing.T) {
	_, idx := setup(t)
	syncer := NewSyncer(idx, 1)

	syncer.ItemRemoved(1)
	syncer.ItemRemoved(2)
	assert.Equal(t, uint64(1), syncer.Dropped())
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{1.5, -2, 0, 3.25}
	got, err := decodeVector(encodeVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
