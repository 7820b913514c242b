// Package index maps object ids to the byte range of their latest record in
// a data file.
package index

import (
	"errors"

	"github.com/MikhailWahib/diarydb/internal/record"
)

// ErrCorrupt is returned when a persisted index can't be parsed.
var ErrCorrupt = errors.New("corrupt key index")

// Entry locates one record in a data file.
type Entry struct {
	Offset int64 `msgpack:"o"`
	Length int64 `msgpack:"l"`
}

// Index is an id -> Entry table that is loaded whole and saved explicitly.
// Update overwrites; there is one entry per id.
type Index interface {
	// Get returns the entry for id. Missing ids are not an error.
	Get(id record.ObjectID) (Entry, bool)
	// Update upserts the entry for id in memory.
	Update(id record.ObjectID, offset, length int64)
	// Save persists the in-memory table.
	Save() error
	// Len returns the number of ids.
	Len() int
	// IDs returns every id in ascending order.
	IDs() []record.ObjectID
	// Close releases resources. It does not save.
	Close() error
}
