package engine

import (
	"errors"
	"fmt"

	"github.com/MikhailWahib/diarydb/internal/index"
	"github.com/MikhailWahib/diarydb/internal/record"
	"github.com/MikhailWahib/diarydb/internal/store"
)

// ErrReleased is returned by a Table used after its last Release.
var ErrReleased = errors.New("table is released")

// Table is the data file and key index of one entity kind. It is shared by
// every repository of that kind and closed when the last one releases it.
type Table struct {
	name   string
	engine *Engine
	store  *store.Store
	index  index.Index
	refs   int // guarded by engine.mu
}

// Name returns the table's file base name
func (t *Table) Name() string {
	return t.name
}

// Put appends rec as the latest version of id and points the index at it.
// The index change is persisted by the next Flush.
func (t *Table) Put(id record.ObjectID, rec *record.Record) error {
	if t.store == nil {
		return ErrReleased
	}
	offset, length, err := t.store.Append(rec)
	if err != nil {
		return fmt.Errorf("table %s: id %d: %w", t.name, id, err)
	}
	t.index.Update(id, offset, length)
	return nil
}

// Read returns the latest record of id. found is false if the index has no
// entry; err reports a failure to read or decode an indexed record.
func (t *Table) Read(id record.ObjectID) (rec *record.Record, found bool, err error) {
	if t.store == nil {
		return nil, false, ErrReleased
	}
	e, ok := t.index.Get(id)
	if !ok {
		return nil, false, nil
	}
	rec, err = t.store.Read(e.Offset, e.Length)
	if err != nil {
		return nil, true, fmt.Errorf("table %s: id %d: %w", t.name, id, err)
	}
	return rec, true, nil
}

// Has reports whether id has a persisted record.
func (t *Table) Has(id record.ObjectID) bool {
	if t.index == nil {
		return false
	}
	_, ok := t.index.Get(id)
	return ok
}

// IDs returns every persisted id in ascending order.
func (t *Table) IDs() []record.ObjectID {
	if t.index == nil {
		return nil
	}
	return t.index.IDs()
}

// Flush persists the key index.
func (t *Table) Flush() error {
	if t.index == nil {
		return ErrReleased
	}
	if err := t.index.Save(); err != nil {
		return fmt.Errorf("table %s: %w", t.name, err)
	}
	return nil
}

// Stats describes a table's data file.
type Stats struct {
	Records    int
	BytesUsed  int64
	BytesTotal int64
}

func (t *Table) Stats() Stats {
	if t.store == nil {
		return Stats{}
	}
	return Stats{
		Records:    t.index.Len(),
		BytesUsed:  t.store.BytesUsed(),
		BytesTotal: t.store.BytesTotal(),
	}
}

// Release drops one reference. The last Release closes the files.
func (t *Table) Release() error {
	return t.engine.release(t)
}

func (t *Table) close() error {
	var errs []error
	if t.store != nil {
		errs = append(errs, t.store.Close())
		t.store = nil
	}
	if t.index != nil {
		errs = append(errs, t.index.Close())
		t.index = nil
	}
	return errors.Join(errs...)
}
