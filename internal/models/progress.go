package models

import "encoding/json"

// UserState is the persisted progress document.
//
// Room carries the inventory/layout data of the room-decoration subsystem.
// The core never interprets it but must round-trip it untouched.
type UserState struct {
	Day               int               `json:"day"`
	TotalWords        int               `json:"totalWords"`
	UnlockedFragments []string          `json:"unlockedFragments"`
	Flags             map[string]bool   `json:"flags"`
	Replies           map[string]string `json:"replies,omitempty"`
	Room              json.RawMessage   `json:"room,omitempty"`
}

// Book is an item on the player's bookshelf.
type Book struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Cover      string `json:"cover,omitempty"`
	Date       string `json:"date,omitempty"`
	IsMystery  bool   `json:"isMystery,omitempty"`
	IsReadOnly bool   `json:"isReadOnly,omitempty"`
}
