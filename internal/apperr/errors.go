// Package apperr holds the sentinel errors shared across the core and its adapters.
package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrUnknownScript  = errors.New("unknown script")
	ErrCorruptPayload = errors.New("corrupt payload")
	ErrClosed         = errors.New("service closed")
	ErrInvalidInput   = errors.New("invalid input")
)
