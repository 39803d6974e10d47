// Package models defines the domain types for Ithaca.
package models

import "time"

// Entry is a single journal page.
//
// SavedWordCount is only meaningful once IsConfirmed is true: it is the word
// count at the last save point and is the basis for every delta forwarded to
// the progress state.
type Entry struct {
	ID             string     `json:"id"`
	Day            int        `json:"day"`
	CreatedAt      time.Time  `json:"createdAt"`
	Content        string     `json:"content"`
	IsConfirmed    bool       `json:"isConfirmed"`
	SavedWordCount int        `json:"savedWordCount"`
	NotebookIDs    []string   `json:"notebookIds"`
	Tags           []string   `json:"tags"`
	IsDeleted      bool       `json:"isDeleted"`
	DeletedAt      *time.Time `json:"deletedAt,omitempty"`
}

// Clone returns a deep copy so callers never alias store-owned slices.
func (e *Entry) Clone() Entry {
	out := *e
	out.NotebookIDs = append([]string{}, e.NotebookIDs...)
	out.Tags = append([]string{}, e.Tags...)
	if e.DeletedAt != nil {
		t := *e.DeletedAt
		out.DeletedAt = &t
	}
	return out
}
