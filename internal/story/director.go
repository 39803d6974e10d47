// Package story decides which cutscene plays when: day events, the
// bookshelf discovery and reactions to the daily mail.
package story

import (
	"fmt"
	"log/slog"

	"github.com/starford/ithaca/internal/catalog"
	"github.com/starford/ithaca/internal/dialogue"
	"github.com/starford/ithaca/internal/models"
	"github.com/starford/ithaca/internal/present"
	"github.com/starford/ithaca/internal/progress"
)

const bookshelfScript = "find_first_note"

// Flags is the slice of progress state the director needs.
type Flags interface {
	Flag(name string) bool
	SetFlag(name string, v bool) error
}

// Shelf is the book collection collaborator.
type Shelf interface {
	HasBook(id string) bool
	UnlockSystemBook(g models.GuideBook) (bool, error)
	MarkReadOnly(id string) error
}

// Director starts scripts on the dialogue engine and wires their outcomes.
type Director struct {
	catalogs *catalog.Holder
	dialogue *dialogue.Engine
	flags    Flags
	shelf    Shelf
	sink     present.Sink
	logger   *slog.Logger
}

// NewDirector creates a director.
func NewDirector(catalogs *catalog.Holder, d *dialogue.Engine, flags Flags, shelf Shelf, sink present.Sink, logger *slog.Logger) *Director {
	return &Director{catalogs: catalogs, dialogue: d, flags: flags, shelf: shelf, sink: sink, logger: logger}
}

// CheckDailyEvents starts at most one day event: the earliest one that is
// due and whose book is not yet on the shelf. Later events wait for the
// next check. Nothing starts while another script is playing.
func (d *Director) CheckDailyEvents(day int) (bool, error) {
	if d.dialogue.Active() {
		return false, nil
	}
	c := d.catalogs.Current()
	for _, ev := range c.DayEvents {
		if day < ev.Day || d.shelf.HasBook(ev.BookID) {
			continue
		}
		err := d.dialogue.Play(ev.ScriptID, func() {
			d.deliverPackage(ev)
		})
		if err != nil {
			return false, fmt.Errorf("story: day %d event: %w", ev.Day, err)
		}
		d.logger.Info("story: day event started", slog.Int("day", ev.Day), slog.String("script", ev.ScriptID))
		return true, nil
	}
	return false, nil
}

func (d *Director) deliverPackage(ev models.DayEvent) {
	g, ok := d.catalogs.Current().GuideBook(ev.SystemBook)
	if !ok {
		d.logger.Warn("story: day event names unknown guide book", slog.Int("system_book", ev.SystemBook))
		return
	}
	if _, err := d.shelf.UnlockSystemBook(g); err != nil {
		d.logger.Error("story: unlock system book failed", slog.String("book", g.ID), slog.String("error", err.Error()))
	}
	d.log(ev.Log)
}

// TryBookshelfStory plays the discovery of the first guide book. It runs
// once, and only after the intro has been watched.
func (d *Director) TryBookshelfStory() (bool, error) {
	if d.flags.Flag(progress.FlagFoundMysteryEntry) || !d.flags.Flag(progress.FlagWatchedIntro) {
		return false, nil
	}
	if err := d.dialogue.Play(bookshelfScript, d.finishBookshelfStory); err != nil {
		return false, fmt.Errorf("story: bookshelf: %w", err)
	}
	return true, nil
}

func (d *Director) finishBookshelfStory() {
	if err := d.flags.SetFlag(progress.FlagFoundMysteryEntry, true); err != nil {
		d.logger.Error("story: set flag failed", slog.String("error", err.Error()))
	}

	g, ok := d.catalogs.Current().GuideBook(1)
	if !ok {
		d.logger.Warn("story: guide book 1 missing from catalog")
		return
	}
	var err error
	if d.shelf.HasBook(g.ID) {
		err = d.shelf.MarkReadOnly(g.ID)
	} else {
		_, err = d.shelf.UnlockSystemBook(g)
	}
	if err != nil {
		d.logger.Error("story: shelve guide book failed", slog.String("error", err.Error()))
	}
	d.log(fmt.Sprintf("📖 You found '%s'", g.Title))
}

// TryMailReaction plays the player's reaction to day's letter when the
// catalog has one, then runs onDone.
func (d *Director) TryMailReaction(day int, onDone func()) (bool, error) {
	key := fmt.Sprintf("mail_reaction_day%d", day)
	if _, ok := d.catalogs.Current().Script(key); !ok {
		return false, nil
	}
	if err := d.dialogue.Play(key, onDone); err != nil {
		return false, fmt.Errorf("story: mail reaction: %w", err)
	}
	d.logger.Info("story: mail reaction started", slog.String("script", key))
	return true, nil
}

func (d *Director) log(text string) {
	if text == "" {
		return
	}
	d.sink.Emit(present.Event{Kind: present.KindLog, Data: present.LogMessage{Text: text}})
}
