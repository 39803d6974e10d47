// Package progress owns the player's cumulative progress: day counter, total
// word count, unlocked fragments and one-shot flags.
package progress

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/starford/ithaca/internal/models"
	"github.com/starford/ithaca/internal/savefile"
	"github.com/starford/ithaca/internal/storage"
)

// Well-known one-shot flags.
const (
	FlagWatchedIntro      = "hasWatchedIntro"
	FlagFoundMysteryEntry = "hasFoundMysteryEntry"
)

// State is the progress document plus its persistence. Every mutation is
// written through the storage port before the method returns.
type State struct {
	store  storage.Provider
	logger *slog.Logger

	s         models.UserState
	fragments map[string]struct{}
}

// Load reads the user state from store. A missing or corrupt document
// starts a fresh game rather than failing.
func Load(store storage.Provider, logger *slog.Logger) *State {
	s, rewrite := savefile.Load(store, savefile.KeyUserState, logger, savefile.DecodeUserState, savefile.NewUserState())
	st := &State{store: store, logger: logger, s: s}
	st.fragments = make(map[string]struct{}, len(s.UnlockedFragments))
	for _, id := range s.UnlockedFragments {
		st.fragments[id] = struct{}{}
	}
	if rewrite {
		if err := st.save(); err != nil {
			logger.Warn("progress: rewrite migrated state failed", slog.String("error", err.Error()))
		}
	}
	return st
}

func (st *State) save() error {
	raw, err := savefile.EncodeUserState(st.s)
	if err != nil {
		return fmt.Errorf("progress: encode: %w", err)
	}
	if err := st.store.Save(savefile.KeyUserState, raw); err != nil {
		return fmt.Errorf("progress: save: %w", err)
	}
	return nil
}

// Day returns the current day, starting at 1.
func (st *State) Day() int {
	return st.s.Day
}

// TotalWords returns the cumulative word count.
func (st *State) TotalWords() int {
	return st.s.TotalWords
}

// AddWords applies delta to the total, clamping at zero.
func (st *State) AddWords(delta int) error {
	st.s.TotalWords += delta
	if st.s.TotalWords < 0 {
		st.s.TotalWords = 0
	}
	return st.save()
}

// AddFragment records id as unlocked and reports whether it is new. An
// already-present id is a no-op and is not persisted again.
func (st *State) AddFragment(id string) (bool, error) {
	if _, ok := st.fragments[id]; ok {
		return false, nil
	}
	st.fragments[id] = struct{}{}
	st.s.UnlockedFragments = append(st.s.UnlockedFragments, id)
	return true, st.save()
}

// HasFragment reports whether id has been unlocked.
func (st *State) HasFragment(id string) bool {
	_, ok := st.fragments[id]
	return ok
}

// Fragments returns the unlocked fragment ids in unlock order.
func (st *State) Fragments() []string {
	return append([]string{}, st.s.UnlockedFragments...)
}

// AdvanceDay moves to the next day and returns it.
func (st *State) AdvanceDay() (int, error) {
	st.s.Day++
	return st.s.Day, st.save()
}

// Flag returns a one-shot flag; unknown flags are false.
func (st *State) Flag(name string) bool {
	return st.s.Flags[name]
}

// SetFlag sets a one-shot flag.
func (st *State) SetFlag(name string, v bool) error {
	st.s.Flags[name] = v
	return st.save()
}

// Reply returns the player's mail reply for day.
func (st *State) Reply(day int) string {
	return st.s.Replies[strconv.Itoa(day)]
}

// SetReply stores the player's mail reply for day.
func (st *State) SetReply(day int, text string) error {
	st.s.Replies[strconv.Itoa(day)] = text
	return st.save()
}

// Snapshot returns a copy of the whole document.
func (st *State) Snapshot() models.UserState {
	out := st.s
	out.UnlockedFragments = st.Fragments()
	out.Flags = make(map[string]bool, len(st.s.Flags))
	for k, v := range st.s.Flags {
		out.Flags[k] = v
	}
	out.Replies = make(map[string]string, len(st.s.Replies))
	for k, v := range st.s.Replies {
		out.Replies[k] = v
	}
	out.Room = append(json.RawMessage(nil), st.s.Room...)
	return out
}
