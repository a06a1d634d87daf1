// Package service coordinates the store with the event bus, the search
// index, photo storage and metrics. Reads go to the store directly; writes
// go through here so their side effects happen after commit.
package service

import (
	"log/slog"
	"time"

	"github.com/erazemk/hisa/internal/apperr"
	"github.com/erazemk/hisa/internal/blob"
	"github.com/erazemk/hisa/internal/events"
	"github.com/erazemk/hisa/internal/imaging"
	"github.com/erazemk/hisa/internal/metrics"
	"github.com/erazemk/hisa/internal/model"
	"github.com/erazemk/hisa/internal/search"
	"github.com/erazemk/hisa/internal/store"
)

// DefaultSearchTimeout bounds a semantic query before falling back to text.
const DefaultSearchTimeout = 5 * time.Second

// Options wires a Service. Store is required; a nil Index, Syncer or Blobs
// disables that feature.
type Options struct {
	Store   *store.Store
	Bus     *events.Bus
	Index   *search.Index
	Syncer  *search.Syncer
	Blobs   blob.Store
	Photos  *imaging.Processor
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	SearchTimeout time.Duration
	MinSimilarity float64
}

type Service struct {
	store   *store.Store
	bus     *events.Bus
	index   *search.Index
	syncer  *search.Syncer
	blobs   blob.Store
	photos  *imaging.Processor
	metrics *metrics.Metrics
	logger  *slog.Logger

	searchTimeout time.Duration
	minSimilarity float64
}

func New(opts Options) *Service {
	s := &Service{
		store:         opts.Store,
		bus:           opts.Bus,
		index:         opts.Index,
		syncer:        opts.Syncer,
		blobs:         opts.Blobs,
		photos:        opts.Photos,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		searchTimeout: opts.SearchTimeout,
		minSimilarity: opts.MinSimilarity,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.photos == nil {
		s.photos = imaging.NewProcessor(imaging.DefaultMaxDimension)
	}
	if s.searchTimeout <= 0 {
		s.searchTimeout = DefaultSearchTimeout
	}
	return s
}

// Store returns the underlying store for read paths.
func (s *Service) Store() *store.Store { return s.store }

// SearchEnabled reports whether semantic search is configured.
func (s *Service) SearchEnabled() bool { return s.index != nil }

// PhotosEnabled reports whether photo storage is configured.
func (s *Service) PhotosEnabled() bool { return s.blobs != nil }

func (s *Service) publish(typ string, id int64, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{Type: typ, ID: id, At: s.store.Now(), Data: data})
}

// itemChanged publishes and schedules reindexing after a committed item write.
func (s *Service) itemChanged(typ string, it *model.Item, err error) (*model.Item, error) {
	if err != nil {
		return nil, err
	}
	s.publish(typ, it.ID, it)
	if s.syncer != nil {
		s.syncer.ItemChanged(it)
	}
	return it, nil
}

func photosDisabled() error {
	return &apperr.ConfigurationError{Component: "photos", Reason: "photo storage is not configured"}
}
