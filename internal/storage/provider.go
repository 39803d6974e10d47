// Package storage defines the persistence port used by the save documents.
package storage

import "errors"

// ErrMissing is returned by Load when nothing has been saved under key yet.
var ErrMissing = errors.New("storage: missing")

// Provider is the interface for save-document persistence.
type Provider interface {
	// Load returns the raw bytes stored under key, or ErrMissing.
	Load(key string) ([]byte, error)
	// Save durably replaces the bytes stored under key.
	Save(key string, raw []byte) error
}
