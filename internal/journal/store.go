// Package journal owns the player's journal entries, their trash lifecycle
// and the word-count accounting that feeds progression.
//
// Word counts reach the progress state only through save points: an entry
// contributes nothing until it is confirmed, and afterwards every edit
// forwards the difference from its last saved count. Trashing an entry
// keeps its contribution; only a hard delete refunds it.
package journal

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/starford/ithaca/internal/apperr"
	"github.com/starford/ithaca/internal/models"
	"github.com/starford/ithaca/internal/parser"
	"github.com/starford/ithaca/internal/savefile"
	"github.com/starford/ithaca/internal/storage"
	"github.com/starford/ithaca/internal/wordcount"
)

// Progress receives word-count deltas.
type Progress interface {
	AddWords(delta int) error
}

// Milestones is asked to re-evaluate unlocks after the total grows.
type Milestones interface {
	CheckMilestones() error
}

// Store holds entries newest first and persists on every change.
type Store struct {
	store      storage.Provider
	progress   Progress
	milestones Milestones
	logger     *slog.Logger

	entries []models.Entry
	now     func() time.Time
	newID   func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the entry id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// Load reads the journal from store. A missing or corrupt document starts
// an empty journal.
func Load(store storage.Provider, progress Progress, milestones Milestones, logger *slog.Logger, opts ...Option) *Store {
	entries, rewrite := savefile.Load(store, savefile.KeyJournal, logger, savefile.DecodeJournal, []models.Entry{})
	s := &Store{
		store:      store,
		progress:   progress,
		milestones: milestones,
		logger:     logger,
		entries:    entries,
		now:        time.Now,
		newID:      func() string { return "entry_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if rewrite {
		if err := s.save(); err != nil {
			logger.Warn("journal: rewrite migrated entries failed", slog.String("error", err.Error()))
		}
	}
	return s
}

func (s *Store) save() error {
	raw, err := savefile.EncodeJournal(s.entries)
	if err != nil {
		return fmt.Errorf("journal: encode: %w", err)
	}
	if err := s.store.Save(savefile.KeyJournal, raw); err != nil {
		return fmt.Errorf("journal: save: %w", err)
	}
	return nil
}

func (s *Store) find(id string) *models.Entry {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return &s.entries[i]
		}
	}
	return nil
}

// Create prepends a new, empty, unconfirmed entry for day.
func (s *Store) Create(day int) (models.Entry, error) {
	if day < 1 {
		day = 1
	}
	e := models.Entry{
		ID:          s.newID(),
		Day:         day,
		CreatedAt:   s.now(),
		NotebookIDs: []string{},
		Tags:        []string{},
	}
	s.entries = slices.Insert(s.entries, 0, e)
	return e.Clone(), s.save()
}

// Get returns a copy of the entry with id.
func (s *Store) Get(id string) (models.Entry, bool) {
	e := s.find(id)
	if e == nil {
		return models.Entry{}, false
	}
	return e.Clone(), true
}

// UpdateContent replaces an entry's text. For a confirmed entry the change
// in word count is forwarded to the progress state, and only growth
// triggers a milestone check: shrinking text never revokes an unlock.
func (s *Store) UpdateContent(id, text string) (models.Entry, error) {
	e := s.find(id)
	if e == nil {
		return models.Entry{}, fmt.Errorf("journal: update %s: %w", id, apperr.ErrNotFound)
	}
	e.Content = text
	e.Tags = parser.Tags(text)

	delta := 0
	if e.IsConfirmed {
		n := wordcount.Count(text)
		delta = n - e.SavedWordCount
		e.SavedWordCount = n
	}
	out := e.Clone()

	errs := []error{s.save()}
	if delta != 0 {
		errs = append(errs, s.progress.AddWords(delta))
		if delta > 0 {
			errs = append(errs, s.milestones.CheckMilestones())
		}
	}
	return out, errors.Join(errs...)
}

// Confirm marks an entry as saved for good. It reports false when the entry
// was already confirmed; confirmation cannot be undone.
func (s *Store) Confirm(id string) (bool, error) {
	e := s.find(id)
	if e == nil {
		return false, fmt.Errorf("journal: confirm %s: %w", id, apperr.ErrNotFound)
	}
	if e.IsConfirmed {
		return false, nil
	}
	e.IsConfirmed = true
	n := wordcount.Count(e.Content)
	e.SavedWordCount = n

	errs := []error{s.save()}
	if n > 0 {
		errs = append(errs, s.progress.AddWords(n), s.milestones.CheckMilestones())
	}
	return true, errors.Join(errs...)
}

// SoftDelete moves an entry to the trash. Word totals are untouched.
func (s *Store) SoftDelete(id string) error {
	e := s.find(id)
	if e == nil {
		return fmt.Errorf("journal: delete %s: %w", id, apperr.ErrNotFound)
	}
	if e.IsDeleted {
		return nil
	}
	t := s.now()
	e.IsDeleted = true
	e.DeletedAt = &t
	return s.save()
}

// Restore takes an entry back out of the trash.
func (s *Store) Restore(id string) error {
	e := s.find(id)
	if e == nil {
		return fmt.Errorf("journal: restore %s: %w", id, apperr.ErrNotFound)
	}
	if !e.IsDeleted {
		return nil
	}
	e.IsDeleted = false
	e.DeletedAt = nil
	return s.save()
}

// HardDelete removes an entry permanently. A confirmed entry's recorded
// contribution is subtracted from the total.
func (s *Store) HardDelete(id string) error {
	idx := slices.IndexFunc(s.entries, func(e models.Entry) bool { return e.ID == id })
	if idx < 0 {
		return fmt.Errorf("journal: purge %s: %w", id, apperr.ErrNotFound)
	}
	e := s.entries[idx]
	s.entries = slices.Delete(s.entries, idx, idx+1)

	errs := []error{s.save()}
	if e.IsConfirmed {
		contribution := e.SavedWordCount
		if contribution == 0 {
			contribution = wordcount.Count(e.Content)
		}
		if contribution > 0 {
			errs = append(errs, s.progress.AddWords(-contribution))
		}
	}
	return errors.Join(errs...)
}

// EmptyTrash hard-deletes every trashed entry and returns their ids.
func (s *Store) EmptyTrash() ([]string, error) {
	var ids []string
	var errs []error
	for _, e := range s.ListTrash() {
		ids = append(ids, e.ID)
		errs = append(errs, s.HardDelete(e.ID))
	}
	return ids, errors.Join(errs...)
}

// ToggleNotebook adds the entry to notebookID, or removes it if present.
func (s *Store) ToggleNotebook(id, notebookID string) (models.Entry, error) {
	e := s.find(id)
	if e == nil {
		return models.Entry{}, fmt.Errorf("journal: notebook %s: %w", id, apperr.ErrNotFound)
	}
	if i := slices.Index(e.NotebookIDs, notebookID); i >= 0 {
		e.NotebookIDs = slices.Delete(e.NotebookIDs, i, i+1)
	} else {
		e.NotebookIDs = append(e.NotebookIDs, notebookID)
	}
	return e.Clone(), s.save()
}

// ListActive returns every entry not in the trash, newest first.
func (s *Store) ListActive() []models.Entry {
	out := []models.Entry{}
	for i := range s.entries {
		if !s.entries[i].IsDeleted {
			out = append(out, s.entries[i].Clone())
		}
	}
	return out
}

// ListTrash returns trashed entries, most recently deleted first. Entries
// without a deletion time sort by creation time, then id.
func (s *Store) ListTrash() []models.Entry {
	out := []models.Entry{}
	for i := range s.entries {
		if s.entries[i].IsDeleted {
			out = append(out, s.entries[i].Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := trashTime(out[i]), trashTime(out[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func trashTime(e models.Entry) time.Time {
	if e.DeletedAt != nil {
		return *e.DeletedAt
	}
	return e.CreatedAt
}

// All returns every entry, trashed ones included.
func (s *Store) All() []models.Entry {
	out := make([]models.Entry, len(s.entries))
	for i := range s.entries {
		out[i] = s.entries[i].Clone()
	}
	return out
}
