package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/hisa/internal/apperr"
	"github.com/erazemk/hisa/internal/blob"
	"github.com/erazemk/hisa/internal/db"
	"github.com/erazemk/hisa/internal/embedding"
	"github.com/erazemk/hisa/internal/events"
	"github.com/erazemk/hisa/internal/imaging"
	"github.com/erazemk/hisa/internal/metrics"
	"github.com/erazemk/hisa/internal/model"
	"github.com/erazemk/hisa/internal/search"
	"github.com/erazemk/hisa/internal/store"
)

type fixture struct {
	svc   *Service
	store *store.Store
	bus   *events.Bus
	feed  <-chan events.Event
	blobs *blob.Memory
	index *search.Index
}

func newFixture(t *testing.T, withSearch bool) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	st := store.New(database)
	bus := events.NewBus()
	feed, cancel := bus.Subscribe("test", 64)
	t.Cleanup(cancel)

	f := &fixture{store: st, bus: bus, feed: feed, blobs: blob.NewMemory()}
	opts := Options{
		Store:         st,
		Bus:           bus,
		Blobs:         f.blobs,
		Photos:        imaging.NewProcessor(64),
		Metrics:       metrics.New(),
		MinSimilarity: 0,
	}
	if withSearch {
		f.index = search.NewIndex(database, embedding.NewHash(128))
		opts.Index = f.index
	}
	f.svc = New(opts)
	return f
}

func (f *fixture) events() []events.Event {
	var out []events.Event
	for {
		select {
		case e := <-f.feed:
			out = append(out, e)
		default:
			return out
		}
	}
}

func eventTypes(es []events.Event) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Type
	}
	return out
}

func TestCreateItemWithLocation(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	garage, err := f.svc.CreateLocation(ctx, model.LocationInput{Name: "Garage", Type: model.LocationTypeRoom})
	require.NoError(t, err)

	it, sum, err := f.svc.CreateItemWithLocation(ctx, model.ItemInput{Name: "Drill"}, garage.ID, 0, "bought")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Total)
	require.Len(t, sum.Locations, 1)
	assert.Equal(t, "Garage", sum.Locations[0].LocationPath)
	assert.Equal(t, []string{events.LocationCreated, events.ItemCreated, events.StockChanged}, eventTypes(f.events()))

	moves, err := f.store.ListMovements(ctx, model.MovementFilter{ItemID: it.ID})
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, model.MovementAssign, moves[0].Kind)
}

func TestCreateItemWithLocationRollsBack(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, _, err := f.svc.CreateItemWithLocation(ctx, model.ItemInput{Name: "Drill"}, 404, 2, "")
	var nf *apperr.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "location", nf.Entity)

	items, err := f.store.ListItems(ctx, store.ItemFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, f.events())
}

func TestItemEventsAndTagNoop(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	it, err := f.svc.CreateItem(ctx, model.ItemInput{Name: "Lamp"})
	require.NoError(t, err)
	_, err = f.svc.AddTag(ctx, it.ID, "Living", nil)
	require.NoError(t, err)
	same, err := f.svc.AddTag(ctx, it.ID, "living", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), same.Version)
	_, err = f.svc.SoftDeleteItem(ctx, it.ID, "broken", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{events.ItemCreated, events.ItemUpdated, events.ItemDeleted}, eventTypes(f.events()))
}

func TestConcurrentSameTagPublishesOnce(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	it, err := f.svc.CreateItem(ctx, model.ItemInput{Name: "Lamp"})
	require.NoError(t, err)
	f.events()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.AddTag(ctx, it.ID, "living", nil)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, []string{events.ItemUpdated}, eventTypes(f.events()))
	got, err := f.store.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
}

func TestLedgerFailureLeavesNoEvent(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	a, err := f.svc.CreateLocation(ctx, model.LocationInput{Name: "A"})
	require.NoError(t, err)
	b, err := f.svc.CreateLocation(ctx, model.LocationInput{Name: "B"})
	require.NoError(t, err)
	it, err := f.svc.CreateItem(ctx, model.ItemInput{Name: "Screws"})
	require.NoError(t, err)
	_, err = f.svc.AssignLocation(ctx, it.ID, a.ID, 10, "")
	require.NoError(t, err)
	f.events()

	_, err = f.svc.MoveItem(ctx, it.ID, a.ID, b.ID, 11, "")
	var iq *apperr.InsufficientQuantityError
	require.True(t, errors.As(err, &iq))
	assert.Empty(t, f.events())

	sum, err := f.svc.SplitItem(ctx, it.ID, a.ID, []model.SplitTarget{{LocationID: b.ID, Quantity: 4}}, "")
	require.NoError(t, err)
	assert.Equal(t, 10, sum.Total)
	assert.Equal(t, []string{events.StockChanged}, eventTypes(f.events()))
}

func TestDeleteLocationPublishes(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	house, err := f.svc.CreateLocation(ctx, model.LocationInput{Name: "House", Type: model.LocationTypeHouse})
	require.NoError(t, err)
	it, err := f.svc.CreateItem(ctx, model.ItemInput{Name: "Vase"})
	require.NoError(t, err)
	_, err = f.svc.AssignLocation(ctx, it.ID, house.ID, 1, "")
	require.NoError(t, err)
	f.events()

	res, err := f.svc.DeleteLocation(ctx, house.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeleteResult{Locations: 1, InventoryEntries: 1}, *res)
	assert.Equal(t, []string{events.LocationDeleted, events.StockChanged}, eventTypes(f.events()))
}

func TestSearchFallsBackToText(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	assert.False(t, f.svc.SearchEnabled())

	_, err := f.svc.CreateItem(ctx, model.ItemInput{Name: "Cordless drill"})
	require.NoError(t, err)
	_, err = f.svc.CreateItem(ctx, model.ItemInput{Name: "Garden hose"})
	require.NoError(t, err)

	res, err := f.svc.Search(ctx, SearchQuery{Text: "drill"})
	require.NoError(t, err)
	assert.Equal(t, BackendText, res.Backend)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "Cordless drill", res.Hits[0].Item.Name)
	assert.Nil(t, res.Hits[0].Score)

	_, err = f.svc.Search(ctx, SearchQuery{Text: "  "})
	var ve *apperr.ValidationError
	assert.True(t, errors.As(err, &ve))

	bad := 2.0
	_, err = f.svc.Search(ctx, SearchQuery{Text: "drill", MinSimilarity: &bad})
	assert.True(t, errors.As(err, &ve))
}

func TestSearchSemantic(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	drill, err := f.svc.CreateItem(ctx, model.ItemInput{Name: "Cordless drill", Brand: "Bosch"})
	require.NoError(t, err)
	hose, err := f.svc.CreateItem(ctx, model.ItemInput{Name: "Garden hose"})
	require.NoError(t, err)
	require.NoError(t, f.index.Upsert(ctx, drill))
	require.NoError(t, f.index.Upsert(ctx, hose))

	res, err := f.svc.Search(ctx, SearchQuery{Text: "bosch drill", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, BackendSemantic, res.Backend)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, drill.ID, res.Hits[0].Item.ID)
	require.NotNil(t, res.Hits[0].Score)
	assert.Greater(t, *res.Hits[0].Score, 0.0)
}

func TestSearchSyncedByWorker(t *testing.T) {
	database := db.NewTestDB(t)
	st := store.New(database)
	index := search.NewIndex(database, embedding.NewHash(64))
	syncer := search.NewSyncer(index, 16)
	ctx := context.Background()
	go syncer.Run(ctx)

	svc := New(Options{Store: st, Index: index, Syncer: syncer})
	it, err := svc.CreateItem(ctx, model.ItemInput{Name: "Camping stove"})
	require.NoError(t, err)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	syncer.Stop(stopCtx)

	res, err := svc.Search(ctx, SearchQuery{Text: "camping stove"})
	require.NoError(t, err)
	assert.Equal(t, BackendSemantic, res.Backend)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, it.ID, res.Hits[0].Item.ID)
}

func testPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for x := 0; x < 200; x++ {
		for y := 0; y < 100; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUploadPhoto(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	it, err := f.svc.CreateItem(ctx, model.ItemInput{Name: "Painting"})
	require.NoError(t, err)

	_, _, err = f.svc.Photo(ctx, it.ID)
	var nf *apperr.NotFoundError
	require.True(t, errors.As(err, &nf))

	updated, err := f.svc.UploadPhoto(ctx, it.ID, bytes.NewReader(testPNG(t, color.RGBA{255, 0, 0, 255})))
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, "image/jpeg", updated.PhotoMime)
	assert.True(t, strings.HasPrefix(updated.PhotoKey, "items/"))
	first := updated.PhotoKey

	info, rc, err := f.svc.Photo(ctx, it.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "image/jpeg", info.ContentType)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 32, cfg.Height)

	// Replacing the photo removes the old blob.
	updated, err = f.svc.UploadPhoto(ctx, it.ID, bytes.NewReader(testPNG(t, color.RGBA{0, 0, 255, 255})))
	require.NoError(t, err)
	assert.NotEqual(t, first, updated.PhotoKey)
	assert.Equal(t, 1, f.blobs.Len())

	_, err = f.svc.UploadPhoto(ctx, it.ID, strings.NewReader("plain text"))
	var ve *apperr.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = f.svc.UploadPhoto(ctx, 999, bytes.NewReader(testPNG(t, color.White)))
	assert.True(t, errors.As(err, &nf))
}

func TestPhotosDisabled(t *testing.T) {
	svc := New(Options{Store: store.New(db.NewTestDB(t))})
	assert.False(t, svc.PhotosEnabled())

	_, err := svc.UploadPhoto(context.Background(), 1, strings.NewReader("x"))
	var ce *apperr.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "photos", ce.Component)
}
