// Package game wires the journal, progression and story components into one
// service and serialises every operation on them through a single event loop.
package game

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/starford/ithaca/internal/apperr"
	"github.com/starford/ithaca/internal/catalog"
	"github.com/starford/ithaca/internal/dialogue"
	"github.com/starford/ithaca/internal/index"
	"github.com/starford/ithaca/internal/journal"
	"github.com/starford/ithaca/internal/library"
	"github.com/starford/ithaca/internal/present"
	"github.com/starford/ithaca/internal/progress"
	"github.com/starford/ithaca/internal/progression"
	"github.com/starford/ithaca/internal/storage"
	"github.com/starford/ithaca/internal/story"
)

// EntryObserver is told about every journal change. kind is one of
// "created", "updated", "confirmed", "trashed", "restored", "deleted".
type EntryObserver func(kind, id string)

type options struct {
	sink           present.Sink
	index          index.EntryIndex
	observer       EntryObserver
	synthesisDelay time.Duration
	journalOpts    []journal.Option
}

// Option configures a Service.
type Option func(*options)

// WithSink sets where presentation events go.
func WithSink(s present.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithIndex attaches a search index. Without one, search scans the journal
// in memory.
func WithIndex(idx index.EntryIndex) Option {
	return func(o *options) { o.index = idx }
}

// WithEntryObserver registers fn for journal changes.
func WithEntryObserver(fn EntryObserver) Option {
	return func(o *options) { o.observer = fn }
}

// WithSynthesisDelay sets how long a synthesised book's announcement waits.
func WithSynthesisDelay(d time.Duration) Option {
	return func(o *options) { o.synthesisDelay = d }
}

// WithJournalOptions passes options through to the journal store.
func WithJournalOptions(opts ...journal.Option) Option {
	return func(o *options) { o.journalOpts = append(o.journalOpts, opts...) }
}

// Service owns every mutable game component.
//
// Concurrency model: one goroutine runs every operation, in submission
// order and to completion, persistence included. Public methods hand it a
// closure and wait, so the components themselves need no locks. Deferred
// work such as a synthesis announcement re-enters through the same loop.
type Service struct {
	logger   *slog.Logger
	catalogs *catalog.Holder
	index    index.EntryIndex
	observer EntryObserver

	journal     *journal.Store
	state       *progress.State
	library     *library.Library
	progression *progression.Engine
	dialogue    *dialogue.Engine
	director    *story.Director
	notifier    *present.Notifier

	reqCh   chan func()
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// New loads the save from store, catches progression up with the loaded
// totals, plays any due day event and starts the event loop.
func New(store storage.Provider, catalogs *catalog.Holder, logger *slog.Logger, opts ...Option) *Service {
	o := options{
		sink:           present.LogSink(logger),
		synthesisDelay: progression.DefaultSynthesisDelay,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{
		logger:   logger,
		catalogs: catalogs,
		index:    o.index,
		observer: o.observer,
		reqCh:    make(chan func()),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	s.notifier = present.NewNotifier(o.sink)
	s.state = progress.Load(store, logger)
	s.library = library.Load(store, logger)
	s.progression = progression.New(catalogs, s.state, s.library, s.notifier, logger,
		progression.WithSynthesisDelay(o.synthesisDelay),
		progression.WithScheduler(s.schedule))
	s.journal = journal.Load(store, s.state, s.progression, logger, o.journalOpts...)
	s.dialogue = dialogue.New(catalogs, o.sink)
	s.director = story.NewDirector(catalogs, s.dialogue, s.state, s.library, o.sink, logger)

	s.startup()
	go s.run()
	return s
}

func (s *Service) startup() {
	if err := s.progression.CheckMilestones(); err != nil {
		s.logger.Warn("game: startup milestone check failed", slog.String("error", err.Error()))
	}
	if err := s.progression.CheckSynthesis(); err != nil {
		s.logger.Warn("game: startup synthesis check failed", slog.String("error", err.Error()))
	}
	if _, err := s.director.CheckDailyEvents(s.state.Day()); err != nil {
		s.logger.Warn("game: startup day event failed", slog.String("error", err.Error()))
	}
	if s.index != nil {
		if err := index.Sync(s.index, s.journal.All(), s.logger); err != nil {
			s.logger.Warn("game: index sync failed", slog.String("error", err.Error()))
		}
	}
}

func (s *Service) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.stopCh:
			return
		case fn := <-s.reqCh:
			fn()
		}
	}
}

// Close stops the event loop. Operations submitted afterwards fail with
// apperr.ErrClosed.
func (s *Service) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stopCh)
	}
	<-s.stopped
}

// do runs fn on the loop and waits for it. Once the loop has accepted fn it
// always runs to completion, even if ctx is cancelled meanwhile.
func (s *Service) do(ctx context.Context, fn func() error) error {
	if s.closed.Load() {
		return apperr.ErrClosed
	}
	done := make(chan error, 1)
	select {
	case s.reqCh <- func() { done <- fn() }:
	case <-s.stopped:
		return apperr.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-done
}

// schedule runs fn on the loop after d without blocking the caller.
func (s *Service) schedule(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		if s.closed.Load() {
			return
		}
		select {
		case s.reqCh <- fn:
		case <-s.stopped:
		}
	})
}

// Catalog returns the catalog in effect.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalogs.Current()
}

// ReloadCatalog swaps in c and re-evaluates progression against it, since
// new milestones or recipes may already be satisfied.
func (s *Service) ReloadCatalog(ctx context.Context, c *catalog.Catalog) error {
	return s.do(ctx, func() error {
		s.catalogs.Swap(c)
		if err := s.progression.CheckMilestones(); err != nil {
			return err
		}
		return s.progression.CheckSynthesis()
	})
}

func (s *Service) notify(kind, id string) {
	if s.observer != nil {
		s.observer(kind, id)
	}
}
