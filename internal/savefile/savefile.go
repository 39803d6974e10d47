// Package savefile encodes the persisted save documents and migrates older
// shapes to the current one before any domain logic sees them.
//
// Documents written by this package carry a "version" field. Anything
// without one is treated as version 0, the shape written by the first
// desktop build: a bare JSON array for the journal and the library, and a
// flat object for the user state.
package savefile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/ithaca/internal/apperr"
	"github.com/starford/ithaca/internal/models"
	"github.com/starford/ithaca/internal/wordcount"
)

// Version is the current document version.
const Version = 1

// Keys under which the documents live in the storage port.
const (
	KeyJournal   = "journal_entries"
	KeyUserState = "user_state"
	KeyLibrary   = "library"
)

type journalDoc struct {
	Version int            `json:"version"`
	Entries []models.Entry `json:"entries"`
}

type userStateDoc struct {
	Version int `json:"version"`
	models.UserState
}

type libraryDoc struct {
	Version int           `json:"version"`
	Books   []models.Book `json:"books"`
}

// EncodeJournal returns the current-version journal document.
func EncodeJournal(entries []models.Entry) ([]byte, error) {
	if entries == nil {
		entries = []models.Entry{}
	}
	return json.Marshal(journalDoc{Version: Version, Entries: entries})
}

// DecodeJournal parses a journal document of any known version. migrated is
// true when the payload was in an older shape and should be rewritten.
func DecodeJournal(raw []byte) (entries []models.Entry, migrated bool, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("savefile: journal: empty: %w", apperr.ErrCorruptPayload)
	}

	if trimmed[0] == '[' {
		var legacy []legacyEntry
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, false, fmt.Errorf("savefile: journal v0: %v: %w", err, apperr.ErrCorruptPayload)
		}
		out := make([]models.Entry, 0, len(legacy))
		for _, le := range legacy {
			out = append(out, le.upgrade())
		}
		return out, true, nil
	}

	var doc journalDoc
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, false, fmt.Errorf("savefile: journal: %v: %w", err, apperr.ErrCorruptPayload)
	}
	if doc.Version > Version {
		return nil, false, fmt.Errorf("savefile: journal version %d is newer than %d: %w", doc.Version, Version, apperr.ErrCorruptPayload)
	}
	for i := range doc.Entries {
		normalizeEntry(&doc.Entries[i])
	}
	return doc.Entries, false, nil
}

// legacyEntry is the version 0 journal entry. Ids were sometimes numbers,
// the notebook was once a single field, and timestamps were epoch millis.
type legacyEntry struct {
	ID             json.RawMessage   `json:"id"`
	Day            int               `json:"day"`
	Timestamp      *int64            `json:"timestamp"`
	CreatedAt      *time.Time        `json:"createdAt"`
	Content        string            `json:"content"`
	IsConfirmed    bool              `json:"isConfirmed"`
	SavedWordCount *int              `json:"savedWordCount"`
	NotebookIDs    []json.RawMessage `json:"notebookIds"`
	NotebookID     json.RawMessage   `json:"notebookId"`
	Tags           []string          `json:"tags"`
	IsDeleted      *bool             `json:"isDeleted"`
	DeletedAt      json.RawMessage   `json:"deletedAt"`
}

func (le legacyEntry) upgrade() models.Entry {
	e := models.Entry{
		ID:          CanonicalID(le.ID),
		Day:         le.Day,
		Content:     le.Content,
		IsConfirmed: le.IsConfirmed,
		Tags:        le.Tags,
	}
	switch {
	case le.CreatedAt != nil:
		e.CreatedAt = *le.CreatedAt
	case le.Timestamp != nil:
		e.CreatedAt = time.UnixMilli(*le.Timestamp).UTC()
	}
	for _, nb := range le.NotebookIDs {
		if id := CanonicalID(nb); id != "" {
			e.NotebookIDs = append(e.NotebookIDs, id)
		}
	}
	if len(e.NotebookIDs) == 0 {
		if id := CanonicalID(le.NotebookID); id != "" {
			e.NotebookIDs = []string{id}
		}
	}
	if le.IsDeleted != nil {
		e.IsDeleted = *le.IsDeleted
	}
	if e.IsDeleted {
		e.DeletedAt = parseTime(le.DeletedAt)
	}
	if le.SavedWordCount != nil {
		e.SavedWordCount = *le.SavedWordCount
	} else if e.IsConfirmed {
		e.SavedWordCount = wordcount.Count(e.Content)
	}
	normalizeEntry(&e)
	return e
}

func normalizeEntry(e *models.Entry) {
	if e.Day < 1 {
		e.Day = 1
	}
	if e.SavedWordCount < 0 {
		e.SavedWordCount = 0
	}
	if e.NotebookIDs == nil {
		e.NotebookIDs = []string{}
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if !e.IsDeleted {
		e.DeletedAt = nil
	}
}

// CanonicalID turns a JSON string or number into the string id used
// everywhere in the core. Anything else yields "".
func CanonicalID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}

func parseTime(raw json.RawMessage) *time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil {
		t := time.UnixMilli(ms).UTC()
		return &t
	}
	var t time.Time
	if err := json.Unmarshal(raw, &t); err == nil {
		return &t
	}
	return nil
}

// NewUserState returns the state of a fresh game.
func NewUserState() models.UserState {
	return models.UserState{
		Day:               1,
		UnlockedFragments: []string{},
		Flags:             map[string]bool{},
		Replies:           map[string]string{},
	}
}

// EncodeUserState returns the current-version user-state document.
func EncodeUserState(s models.UserState) ([]byte, error) {
	return json.Marshal(userStateDoc{Version: Version, UserState: s})
}

// DecodeUserState parses a user-state document of any known version.
func DecodeUserState(raw []byte) (state models.UserState, migrated bool, err error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return models.UserState{}, false, fmt.Errorf("savefile: user state: not an object: %w", apperr.ErrCorruptPayload)
	}

	if _, ok := fields["version"]; ok {
		var doc userStateDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return models.UserState{}, false, fmt.Errorf("savefile: user state: %v: %w", err, apperr.ErrCorruptPayload)
		}
		if doc.Version > Version {
			return models.UserState{}, false, fmt.Errorf("savefile: user state version %d is newer than %d: %w", doc.Version, Version, apperr.ErrCorruptPayload)
		}
		state = doc.UserState
		normalizeUserState(&state)
		return state, false, nil
	}

	state, err = upgradeUserState(fields)
	if err != nil {
		return models.UserState{}, false, err
	}
	return state, true, nil
}

// upgradeUserState maps the version 0 flat object. Every top-level boolean
// was a one-shot flag, and inventory/layout belonged to the room.
func upgradeUserState(fields map[string]json.RawMessage) (models.UserState, error) {
	state := NewUserState()
	room := map[string]json.RawMessage{}

	for k, v := range fields {
		var err error
		switch k {
		case "day":
			err = json.Unmarshal(v, &state.Day)
		case "totalWords":
			err = json.Unmarshal(v, &state.TotalWords)
		case "unlockedFragments":
			var ids []json.RawMessage
			if err = json.Unmarshal(v, &ids); err == nil {
				for _, id := range ids {
					if s := CanonicalID(id); s != "" {
						state.UnlockedFragments = append(state.UnlockedFragments, s)
					}
				}
			}
		case "replies":
			err = json.Unmarshal(v, &state.Replies)
		case "inventory", "layout":
			room[k] = v
		default:
			var b bool
			if json.Unmarshal(v, &b) == nil {
				state.Flags[k] = b
			}
		}
		if err != nil {
			return models.UserState{}, fmt.Errorf("savefile: user state v0 field %s: %v: %w", k, err, apperr.ErrCorruptPayload)
		}
	}

	if len(room) > 0 {
		b, err := json.Marshal(room)
		if err != nil {
			return models.UserState{}, fmt.Errorf("savefile: user state v0 room: %w", err)
		}
		state.Room = b
	}
	normalizeUserState(&state)
	return state, nil
}

func normalizeUserState(s *models.UserState) {
	if s.Day < 1 {
		s.Day = 1
	}
	if s.TotalWords < 0 {
		s.TotalWords = 0
	}
	if s.UnlockedFragments == nil {
		s.UnlockedFragments = []string{}
	}
	if s.Flags == nil {
		s.Flags = map[string]bool{}
	}
	if s.Replies == nil {
		s.Replies = map[string]string{}
	}
}

// EncodeLibrary returns the current-version library document.
func EncodeLibrary(books []models.Book) ([]byte, error) {
	if books == nil {
		books = []models.Book{}
	}
	return json.Marshal(libraryDoc{Version: Version, Books: books})
}

// DecodeLibrary parses a library document of any known version.
func DecodeLibrary(raw []byte) (books []models.Book, migrated bool, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("savefile: library: empty: %w", apperr.ErrCorruptPayload)
	}

	if trimmed[0] == '[' {
		var legacy []struct {
			models.Book
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, false, fmt.Errorf("savefile: library v0: %v: %w", err, apperr.ErrCorruptPayload)
		}
		out := make([]models.Book, 0, len(legacy))
		for _, lb := range legacy {
			b := lb.Book
			b.ID = CanonicalID(lb.ID)
			if b.ID == "" {
				continue
			}
			out = append(out, b)
		}
		return out, true, nil
	}

	var doc libraryDoc
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, false, fmt.Errorf("savefile: library: %v: %w", err, apperr.ErrCorruptPayload)
	}
	if doc.Version > Version {
		return nil, false, fmt.Errorf("savefile: library version %d is newer than %d: %w", doc.Version, Version, apperr.ErrCorruptPayload)
	}
	return doc.Books, false, nil
}
