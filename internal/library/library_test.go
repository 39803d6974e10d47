package library

import (
	"testing"

	"github.com/starford/ithaca/internal/models"
	"github.com/starford/ithaca/internal/savefile"
	"github.com/starford/ithaca/internal/storage"
	"github.com/starford/ithaca/internal/testutil"
)

func TestAddBookOnce(t *testing.T) {
	store := storage.NewMemory()
	l := Load(store, testutil.Logger())

	added, err := l.AddBook(models.Book{ID: "b1", Title: "One"})
	if err != nil || !added {
		t.Fatalf("first add = %v, %v", added, err)
	}
	added, _ = l.AddBook(models.Book{ID: "b1", Title: "Dup"})
	if added {
		t.Error("duplicate id must not be added")
	}
	if got := l.GetAll(); len(got) != 1 || got[0].Title != "One" {
		t.Errorf("books = %+v", got)
	}

	again := Load(store, testutil.Logger())
	if !again.HasBook("b1") {
		t.Error("book not persisted")
	}
}

func TestUnlockSystemBookAndReadOnly(t *testing.T) {
	l := Load(storage.NewMemory(), testutil.Logger())
	_, _ = l.AddBook(models.Book{ID: "guide_book_part1", Title: "I"})
	if err := l.MarkReadOnly("guide_book_part1"); err != nil {
		t.Fatalf("MarkReadOnly: %v", err)
	}
	b, _ := l.Get("guide_book_part1")
	if !b.IsReadOnly {
		t.Error("book should be read-only")
	}

	added, err := l.UnlockSystemBook(models.GuideBook{Number: 2, ID: "guide_book_part2", Title: "II"})
	if err != nil || !added {
		t.Fatalf("UnlockSystemBook = %v, %v", added, err)
	}
	b, _ = l.Get("guide_book_part2")
	if !b.IsMystery || !b.IsReadOnly {
		t.Errorf("system book flags = %+v", b)
	}
}

func TestCorruptShelfStartsEmpty(t *testing.T) {
	store := storage.NewMemory()
	_ = store.Save(savefile.KeyLibrary, []byte("]["))
	l := Load(store, testutil.Logger())
	if len(l.GetAll()) != 0 {
		t.Error("corrupt shelf should start empty")
	}
}
