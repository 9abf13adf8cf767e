// Package store provides the durable key-value slot store backing the
// product registry. Values are opaque strings; each slot carries a
// monotonically increasing version so writers can detect lost updates.
package store

import "errors"

// ErrVersionConflict is returned by SetVersioned when the slot has been
// written since the version the caller read.
var ErrVersionConflict = errors.New("store: slot modified since read")

// Store is a durable key-value store holding one serialized value per key.
//
// Get/Set/Remove are the plain contract. The versioned pair implements
// optimistic concurrency: GetVersioned reports the slot's current version
// (0 when absent) and SetVersioned only writes when that version is still
// current, failing with ErrVersionConflict otherwise.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error

	GetVersioned(key string) (value string, version uint64, ok bool, err error)
	SetVersioned(key, value string, version uint64) error
}
