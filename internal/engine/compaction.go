package engine

import (
	"fmt"
	"log/slog"

	"github.com/MikhailWahib/diarydb/internal/record"
	"github.com/MikhailWahib/diarydb/internal/store"
)

// CompactSuffix is appended to the data file name while it is rewritten
const CompactSuffix = ".compact"

// Compact rewrites the data file so it only holds the records the index
// points at, then repoints the index. It returns the number of bytes
// reclaimed. Compaction never runs on its own; records superseded by later
// saves otherwise stay in the file forever.
//
// The data file is replaced before the index is saved, so a crash between
// the two leaves an index that doesn't match the data file.
func (t *Table) Compact() (int64, error) {
	if t.store == nil {
		return 0, ErrReleased
	}
	e := t.engine
	dataPath := t.store.Path()
	tmpPath := dataPath + CompactSuffix
	before := t.store.BytesTotal()

	// a leftover from an interrupted compaction
	_ = e.dm.Delete(tmpPath)

	out, err := store.Open(e.dm, tmpPath, store.Options{Logger: e.logger})
	if err != nil {
		return 0, fmt.Errorf("failed to open compaction output: %w", err)
	}
	cleanup := func() {
		_ = out.Close()
		_ = e.dm.Delete(tmpPath)
	}

	type moved struct {
		id             record.ObjectID
		offset, length int64
	}
	ids := t.index.IDs()
	entries := make([]moved, 0, len(ids))
	rec := record.New()
	for _, id := range ids {
		ent, _ := t.index.Get(id)
		rec.Reset()
		if err := t.store.ReadInto(ent.Offset, ent.Length, rec); err != nil {
			cleanup()
			return 0, fmt.Errorf("table %s: compacting id %d: %w", t.name, id, err)
		}
		offset, length, err := out.Append(rec)
		if err != nil {
			cleanup()
			return 0, fmt.Errorf("table %s: compacting id %d: %w", t.name, id, err)
		}
		entries = append(entries, moved{id, offset, length})
	}

	if err := out.Close(); err != nil {
		cleanup()
		return 0, fmt.Errorf("failed to close compaction output: %w", err)
	}
	if err := t.store.Close(); err != nil {
		_ = e.dm.Delete(tmpPath)
		return 0, fmt.Errorf("failed to close data file: %w", err)
	}
	t.store = nil

	renameErr := e.dm.Rename(tmpPath, dataPath)
	// reopen whichever file now lives at dataPath
	st, err := store.Open(e.dm, dataPath, e.storeOptions())
	if err != nil {
		return 0, fmt.Errorf("table %s: failed to reopen data file: %w", t.name, err)
	}
	t.store = st
	if renameErr != nil {
		_ = e.dm.Delete(tmpPath)
		return 0, fmt.Errorf("failed to replace data file: %w", renameErr)
	}

	for _, m := range entries {
		t.index.Update(m.id, m.offset, m.length)
	}
	if err := t.Flush(); err != nil {
		return 0, err
	}

	reclaimed := before - t.store.BytesTotal()
	e.logger.Info("engine: compacted table",
		slog.String("table", t.name), slog.Int("records", len(entries)),
		slog.Int64("reclaimed", reclaimed))
	return reclaimed, nil
}
