// Package library is the player's bookshelf.
package library

import (
	"fmt"
	"log/slog"

	"github.com/starford/ithaca/internal/models"
	"github.com/starford/ithaca/internal/savefile"
	"github.com/starford/ithaca/internal/storage"
)

// Library holds the books in shelf order and persists on every change.
type Library struct {
	store  storage.Provider
	logger *slog.Logger
	books  []models.Book
}

// Load reads the shelf from store, starting empty when the document is
// missing or corrupt.
func Load(store storage.Provider, logger *slog.Logger) *Library {
	books, rewrite := savefile.Load(store, savefile.KeyLibrary, logger, savefile.DecodeLibrary, []models.Book{})
	l := &Library{store: store, logger: logger, books: books}
	if rewrite {
		if err := l.save(); err != nil {
			logger.Warn("library: rewrite migrated shelf failed", slog.String("error", err.Error()))
		}
	}
	return l
}

func (l *Library) save() error {
	raw, err := savefile.EncodeLibrary(l.books)
	if err != nil {
		return fmt.Errorf("library: encode: %w", err)
	}
	if err := l.store.Save(savefile.KeyLibrary, raw); err != nil {
		return fmt.Errorf("library: save: %w", err)
	}
	return nil
}

// GetAll returns a copy of every book on the shelf.
func (l *Library) GetAll() []models.Book {
	return append([]models.Book{}, l.books...)
}

// Get returns the book with id.
func (l *Library) Get(id string) (models.Book, bool) {
	for _, b := range l.books {
		if b.ID == id {
			return b, true
		}
	}
	return models.Book{}, false
}

// HasBook reports whether id is on the shelf.
func (l *Library) HasBook(id string) bool {
	_, ok := l.Get(id)
	return ok
}

// AddBook shelves b unless a book with the same id is already there.
func (l *Library) AddBook(b models.Book) (bool, error) {
	if l.HasBook(b.ID) {
		return false, nil
	}
	l.books = append(l.books, b)
	return true, l.save()
}

// MarkReadOnly locks an existing book against edits.
func (l *Library) MarkReadOnly(id string) error {
	for i := range l.books {
		if l.books[i].ID == id {
			if l.books[i].IsReadOnly {
				return nil
			}
			l.books[i].IsReadOnly = true
			return l.save()
		}
	}
	return nil
}

// UnlockSystemBook shelves one of the story's guide books.
func (l *Library) UnlockSystemBook(g models.GuideBook) (bool, error) {
	return l.AddBook(models.Book{
		ID:         g.ID,
		Title:      g.Title,
		Content:    g.Content,
		Cover:      g.Cover,
		IsMystery:  true,
		IsReadOnly: true,
	})
}
