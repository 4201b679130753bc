package storage

import "errors"

var (
	// ErrNotFound is returned when no document or bundle is stored under a key.
	ErrNotFound = errors.New("entity not found")

	// ErrEntityType is returned when an entity ID names the wrong kind of
	// stored entity, or a kind the store does not know.
	ErrEntityType = errors.New("invalid entity type")
)
