// Package progression turns word count into unlocks: milestones grant
// fragments, and complete fragment sets synthesise books.
package progression

import (
	"errors"
	"log/slog"
	"time"

	"github.com/starford/ithaca/internal/catalog"
	"github.com/starford/ithaca/internal/models"
	"github.com/starford/ithaca/internal/present"
)

// DefaultSynthesisDelay separates a synthesis announcement from the
// fragment announcement that triggered it.
const DefaultSynthesisDelay = 2500 * time.Millisecond

const previewRunes = 25

// Progress is the slice of progress state the engine reads and writes.
type Progress interface {
	TotalWords() int
	AddFragment(id string) (bool, error)
	HasFragment(id string) bool
}

// Shelf is the book collection collaborator.
type Shelf interface {
	HasBook(id string) bool
	AddBook(b models.Book) (bool, error)
}

// Notifier displays modal notifications.
type Notifier interface {
	Notify(kind present.Kind, n present.Notification)
}

// Scheduler runs fn after d. Implementations must run fn on the same
// logical thread as the engine.
type Scheduler func(d time.Duration, fn func())

// Engine evaluates milestones and synthesis recipes.
type Engine struct {
	catalogs *catalog.Holder
	progress Progress
	shelf    Shelf
	notifier Notifier
	schedule Scheduler
	delay    time.Duration
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSynthesisDelay overrides DefaultSynthesisDelay.
func WithSynthesisDelay(d time.Duration) Option {
	return func(e *Engine) { e.delay = d }
}

// WithScheduler overrides how deferred notifications are run.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.schedule = s }
}

// New creates an engine.
func New(catalogs *catalog.Holder, progress Progress, shelf Shelf, notifier Notifier, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		catalogs: catalogs,
		progress: progress,
		shelf:    shelf,
		notifier: notifier,
		delay:    DefaultSynthesisDelay,
		logger:   logger,
		// Without a scheduler the announcement is queued at once; the
		// notifier still holds it behind the fragment notification.
		schedule: func(_ time.Duration, fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckMilestones unlocks every fragment whose threshold the current total
// has reached. Re-checking is a no-op for fragments already held.
func (e *Engine) CheckMilestones() error {
	total := e.progress.TotalWords()
	var errs []error
	for _, ms := range e.catalogs.Current().Milestones {
		if total < ms.Threshold {
			continue
		}
		if err := e.unlockFragment(ms.FragmentID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) unlockFragment(id string) error {
	isNew, err := e.progress.AddFragment(id)
	if !isNew {
		return err
	}

	frag, ok := e.catalogs.Current().Fragment(id)
	if !ok {
		e.logger.Warn("progression: milestone names unknown fragment", slog.String("fragment", id))
		return err
	}

	e.logger.Info("progression: fragment unlocked", slog.String("fragment", id))
	e.notifier.Notify(present.KindFragmentUnlocked, present.Notification{
		Title:   "✨ Fragment found",
		Heading: frag.Title,
		Body:    preview(frag.Body),
	})

	return errors.Join(err, e.CheckSynthesis())
}

// CheckSynthesis creates the book of every recipe whose fragments are all
// unlocked. A recipe whose book already exists never fires again.
func (e *Engine) CheckSynthesis() error {
	var errs []error
	for _, r := range e.catalogs.Current().Recipes {
		if e.shelf.HasBook(r.BookID) || !e.hasAll(r.RequiredFragments) {
			continue
		}

		added, err := e.shelf.AddBook(models.Book{
			ID:         r.BookID,
			Title:      r.Title,
			Content:    r.Body,
			Cover:      r.Cover,
			Date:       "Recomposed memory",
			IsMystery:  true,
			IsReadOnly: true,
		})
		if err != nil {
			errs = append(errs, err)
		}
		if !added {
			continue
		}

		e.logger.Info("progression: book synthesised", slog.String("book", r.BookID))
		n := present.Notification{
			Title:   "📚 Memories recomposed",
			Heading: r.Title,
			Body:    "The fragments in your hands drew together on their own.",
		}
		e.schedule(e.delay, func() {
			e.notifier.Notify(present.KindBookSynthesized, n)
		})
	}
	return errors.Join(errs...)
}

func (e *Engine) hasAll(ids []string) bool {
	for _, id := range ids {
		if !e.progress.HasFragment(id) {
			return false
		}
	}
	return true
}

func preview(body string) string {
	r := []rune(body)
	if len(r) <= previewRunes {
		return body
	}
	return string(r[:previewRunes]) + "..."
}
