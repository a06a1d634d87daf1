package search

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erazemk/hisa/internal/model"
)

type job struct {
	item   *model.Item // nil means remove
	itemID int64
}

// Syncer keeps the index up to date in the background. Enqueueing never
// blocks; when the queue is full the change is dropped and logged.
type Syncer struct {
	index   *Index
	queue   chan job
	timeout time.Duration

	// OnResult, when set, is called after every processed job.
	OnResult func(op string, err error)

	mu      sync.RWMutex
	stopped bool
	dropped atomic.Uint64
	done    chan struct{}
}

// NewSyncer returns a syncer with a queue of the given size. Call Run to
// start it.
func NewSyncer(index *Index, size int) *Syncer {
	if size <= 0 {
		size = 1
	}
	return &Syncer{
		index:   index,
		queue:   make(chan job, size),
		timeout: 30 * time.Second,
		done:    make(chan struct{}),
	}
}

// ItemChanged schedules an item for (re)indexing. Inactive items are removed
// from the index instead.
func (s *Syncer) ItemChanged(it *model.Item) {
	if !it.Active {
		s.ItemRemoved(it.ID)
		return
	}
	cp := *it
	cp.History = nil
	s.enqueue(job{item: &cp, itemID: it.ID})
}

// ItemRemoved schedules an item's vector for removal.
func (s *Syncer) ItemRemoved(itemID int64) {
	s.enqueue(job{itemID: itemID})
}

func (s *Syncer) enqueue(j job) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		s.dropped.Add(1)
		return
	}
	select {
	case s.queue <- j:
	default:
		s.dropped.Add(1)
		slog.Warn("search sync queue full, dropping change", "item_id", j.itemID)
	}
}

// Dropped returns the number of changes dropped so far.
func (s *Syncer) Dropped() uint64 { return s.dropped.Load() }

// Run processes jobs until Stop is called and the queue is drained, or ctx
// is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-s.queue:
			if !ok {
				return
			}
			s.process(ctx, j)
		}
	}
}

func (s *Syncer) process(ctx context.Context, j job) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	op := "upsert"
	var err error
	if j.item != nil {
		err = s.index.Upsert(ctx, j.item)
	} else {
		op = "remove"
		err = s.index.Remove(ctx, j.itemID)
	}
	if err != nil {
		slog.Warn("search sync failed", "op", op, "item_id", j.itemID, "error", err)
	}
	if s.OnResult != nil {
		s.OnResult(op, err)
	}
}

// Start runs the worker on its own context so that cancelling a request or
// signal context does not cut the drain short. The returned stop function
// drains the queue until ctx ends, then aborts whatever is still in flight.
func (s *Syncer) Start() (stop func(ctx context.Context)) {
	runCtx, cancel := context.WithCancel(context.Background())
	go s.Run(runCtx)
	return func(ctx context.Context) {
		s.Stop(ctx)
		cancel()
		<-s.done
	}
}

// Stop closes the queue and waits for Run to drain it, or for ctx to end.
func (s *Syncer) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-ctx.Done():
	}
}
