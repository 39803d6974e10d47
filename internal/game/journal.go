package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/starford/ithaca/internal/apperr"
	"github.com/starford/ithaca/internal/checksum"
	"github.com/starford/ithaca/internal/index"
	"github.com/starford/ithaca/internal/models"
	"github.com/starford/ithaca/internal/parser"
)

// ETag returns the concurrency token for an entry's text.
func ETag(e models.Entry) string {
	return checksum.Text(e.Content)
}

// reindex refreshes the search row for id after a change. The journal is
// the source of truth, so index failures are logged and left for the next
// startup sync to repair.
func (s *Service) reindex(kind, id string) {
	if s.index != nil {
		var err error
		if e, ok := s.journal.Get(id); ok {
			err = index.IndexEntry(s.index, e)
		} else {
			err = s.index.DeleteEntry(id)
		}
		if err != nil {
			s.logger.Warn("game: reindex failed", slog.String("id", id), slog.String("error", err.Error()))
		}
	}
	s.notify(kind, id)
}

// CreateEntry starts a new entry for the current day.
func (s *Service) CreateEntry(ctx context.Context) (models.Entry, error) {
	var out models.Entry
	err := s.do(ctx, func() error {
		e, err := s.journal.Create(s.state.Day())
		out = e
		s.reindex("created", e.ID)
		return err
	})
	return out, err
}

// GetEntry returns one entry, trashed or not.
func (s *Service) GetEntry(ctx context.Context, id string) (models.Entry, error) {
	var out models.Entry
	err := s.do(ctx, func() error {
		e, ok := s.journal.Get(id)
		if !ok {
			return fmt.Errorf("game: entry %s: %w", id, apperr.ErrNotFound)
		}
		out = e
		return nil
	})
	return out, err
}

// UpdateEntry replaces an entry's text. A non-empty ifMatch must equal the
// entry's current ETag, otherwise apperr.ErrConflict is returned and nothing
// changes.
func (s *Service) UpdateEntry(ctx context.Context, id, text, ifMatch string) (models.Entry, error) {
	var out models.Entry
	err := s.do(ctx, func() error {
		cur, ok := s.journal.Get(id)
		if !ok {
			return fmt.Errorf("game: update %s: %w", id, apperr.ErrNotFound)
		}
		if ifMatch != "" && ifMatch != ETag(cur) {
			return fmt.Errorf("game: update %s: %w", id, apperr.ErrConflict)
		}
		e, err := s.journal.UpdateContent(id, text)
		out = e
		s.reindex("updated", id)
		return err
	})
	return out, err
}

// ConfirmEntry makes an entry's words count. It reports false when the
// entry was already confirmed.
func (s *Service) ConfirmEntry(ctx context.Context, id string) (bool, error) {
	var changed bool
	err := s.do(ctx, func() error {
		ok, err := s.journal.Confirm(id)
		changed = ok
		if ok {
			s.reindex("confirmed", id)
		}
		return err
	})
	return changed, err
}

// TrashEntry moves an entry to the trash.
func (s *Service) TrashEntry(ctx context.Context, id string) error {
	return s.do(ctx, func() error {
		if err := s.journal.SoftDelete(id); err != nil {
			return err
		}
		s.reindex("trashed", id)
		return nil
	})
}

// RestoreEntry takes an entry back out of the trash.
func (s *Service) RestoreEntry(ctx context.Context, id string) error {
	return s.do(ctx, func() error {
		if err := s.journal.Restore(id); err != nil {
			return err
		}
		s.reindex("restored", id)
		return nil
	})
}

// PurgeEntry deletes an entry for good, refunding a confirmed entry's words.
func (s *Service) PurgeEntry(ctx context.Context, id string) error {
	return s.do(ctx, func() error {
		err := s.journal.HardDelete(id)
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		s.reindex("deleted", id)
		return err
	})
}

// EmptyTrash purges every trashed entry and returns their ids.
func (s *Service) EmptyTrash(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.do(ctx, func() error {
		var err error
		ids, err = s.journal.EmptyTrash()
		for _, id := range ids {
			s.reindex("deleted", id)
		}
		return err
	})
	return ids, err
}

// ToggleNotebook files an entry under notebookID, or takes it out.
func (s *Service) ToggleNotebook(ctx context.Context, id, notebookID string) (models.Entry, error) {
	var out models.Entry
	err := s.do(ctx, func() error {
		e, err := s.journal.ToggleNotebook(id, notebookID)
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		out = e
		s.notify("updated", id)
		return err
	})
	return out, err
}

// ListEntries returns active entries newest first, optionally only those
// tagged tag.
func (s *Service) ListEntries(ctx context.Context, tag string) ([]models.Entry, error) {
	tag = parser.NormalizeTag(tag)
	var out []models.Entry
	err := s.do(ctx, func() error {
		if tag != "" && s.index != nil {
			return s.listTagged(tag, &out)
		}
		out = s.journal.ListActive()
		if tag == "" {
			return nil
		}
		out = slices.DeleteFunc(out, func(e models.Entry) bool {
			return !slices.Contains(e.Tags, tag)
		})
		return nil
	})
	return out, err
}

// listTagged resolves tag through the index, most recent day first.
func (s *Service) listTagged(tag string, out *[]models.Entry) error {
	rows, err := s.index.ListByTag(tag, 1000)
	if err != nil {
		return err
	}
	*out = make([]models.Entry, 0, len(rows))
	for _, r := range rows {
		if e, ok := s.journal.Get(r.ID); ok && !e.IsDeleted {
			*out = append(*out, e)
		}
	}
	return nil
}

// ListTrash returns trashed entries, most recently deleted first.
func (s *Service) ListTrash(ctx context.Context) ([]models.Entry, error) {
	var out []models.Entry
	err := s.do(ctx, func() error {
		out = s.journal.ListTrash()
		return nil
	})
	return out, err
}

// Search finds active entries matching query. With an index attached the
// query goes to SQLite; otherwise entries are scanned case-insensitively.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.closed.Load() {
		return nil, apperr.ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}
	if s.index != nil {
		return s.index.Search(query, limit)
	}

	var out []index.SearchResult
	err := s.do(ctx, func() error {
		out = scan(s.journal.ListActive(), query, limit)
		return nil
	})
	return out, err
}

func scan(entries []models.Entry, query string, limit int) []index.SearchResult {
	q := strings.ToLower(query)
	out := []index.SearchResult{}
	for _, e := range entries {
		if len(out) == limit {
			break
		}
		if !strings.Contains(strings.ToLower(e.Content), q) {
			continue
		}
		snippet := []rune(e.Content)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		out = append(out, index.SearchResult{ID: e.ID, Day: e.Day, Title: parser.Title(e.Content), Snippet: string(snippet)})
	}
	return out
}
