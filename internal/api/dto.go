package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ithaca/internal/game"
	"github.com/starford/ithaca/internal/index"
	"github.com/starford/ithaca/internal/models"
	"github.com/starford/ithaca/internal/parser"
)

const maxEntryRunes = 200_000

// UpdateEntryRequest is the request body for replacing an entry's text.
type UpdateEntryRequest struct {
	Content string `json:"content"`
}

// Validate validates the request.
func (r UpdateEntryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.RuneLength(0, maxEntryRunes)),
	)
}

// StartDialogueRequest names the script to play.
type StartDialogueRequest struct {
	Script string `json:"script"`
}

// Validate validates the request.
func (r StartDialogueRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Script, validation.Required),
	)
}

// ReplyRequest carries the player's answer to a letter.
type ReplyRequest struct {
	Text string `json:"text"`
}

// Validate validates the request.
func (r ReplyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Required, validation.RuneLength(1, 5000)),
	)
}

// EntryDetail is an entry as returned by the API, with its display title
// and the checksum to send back in If-Match.
type EntryDetail struct {
	models.Entry
	Title    string `json:"title"`
	Checksum string `json:"checksum"`
}

func newEntryDetail(e models.Entry) EntryDetail {
	return EntryDetail{Entry: e, Title: parser.Title(e.Content), Checksum: game.ETag(e)}
}

func newEntryList(entries []models.Entry) []EntryDetail {
	out := make([]EntryDetail, len(entries))
	for i, e := range entries {
		out[i] = newEntryDetail(e)
	}
	return out
}

// EntryListResponse wraps entry listings.
type EntryListResponse struct {
	Entries []EntryDetail `json:"entries"`
	Total   int           `json:"total"`
}

// ConfirmResponse reports whether a confirm changed anything.
type ConfirmResponse struct {
	Confirmed bool        `json:"confirmed"`
	Entry     EntryDetail `json:"entry"`
}

// EmptyTrashResponse lists the purged entry ids.
type EmptyTrashResponse struct {
	Deleted []string `json:"deleted"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}

// DayResponse is returned after advancing the day.
type DayResponse struct {
	Day      int                `json:"day"`
	Dialogue game.DialogueState `json:"dialogue"`
}

// StartedResponse reports whether a story script began.
type StartedResponse struct {
	Started  bool               `json:"started"`
	Dialogue game.DialogueState `json:"dialogue"`
}

// BookListResponse wraps the shelf.
type BookListResponse struct {
	Books []models.Book `json:"books"`
}
