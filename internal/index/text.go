package index

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/kjk/common/atomicfile"

	"github.com/MikhailWahib/diarydb/internal/record"
)

// TextIndex keeps the table in a text file, one "<id> <offset> <length>"
// line per id. Save rewrites the whole file through a temp file and rename.
type TextIndex struct {
	path    string
	entries map[record.ObjectID]Entry
}

// LoadText reads the index at path. A missing file is an empty index.
func LoadText(path string) (*TextIndex, error) {
	idx := &TextIndex{
		path:    path,
		entries: make(map[record.ObjectID]Entry),
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("failed to open key index: %w", err)
	}
	defer f.Close()

	if err := idx.parse(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}

func (idx *TextIndex) parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, e, err := ParseLine(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		idx.entries[id] = e
	}
	return scanner.Err()
}

// ParseLine parses one "<id> <offset> <length>" line.
func ParseLine(line string) (record.ObjectID, Entry, error) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return 0, Entry{}, fmt.Errorf("%w: invalid line %q", ErrCorrupt, line)
	}
	id, err := strconv.ParseInt(parts[0], 10, 32)
	if err != nil || id <= 0 {
		return 0, Entry{}, fmt.Errorf("%w: invalid id in %q", ErrCorrupt, line)
	}
	offset, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || offset < 0 {
		return 0, Entry{}, fmt.Errorf("%w: invalid offset in %q", ErrCorrupt, line)
	}
	length, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || length < 0 {
		return 0, Entry{}, fmt.Errorf("%w: invalid length in %q", ErrCorrupt, line)
	}
	return record.ObjectID(id), Entry{Offset: offset, Length: length}, nil
}

func (idx *TextIndex) Get(id record.ObjectID) (Entry, bool) {
	e, ok := idx.entries[id]
	return e, ok
}

func (idx *TextIndex) Update(id record.ObjectID, offset, length int64) {
	idx.entries[id] = Entry{Offset: offset, Length: length}
}

func (idx *TextIndex) Len() int {
	return len(idx.entries)
}

func (idx *TextIndex) IDs() []record.ObjectID {
	ids := make([]record.ObjectID, 0, len(idx.entries))
	for id := range idx.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Save rewrites the file, ids in ascending order.
func (idx *TextIndex) Save() error {
	w, err := atomicfile.New(idx.path)
	if err != nil {
		return fmt.Errorf("failed to save key index: %w", err)
	}
	// calling Close() twice is a no-op
	defer w.Close()

	bw := bufio.NewWriter(w)
	var line []byte
	for _, id := range idx.IDs() {
		e := idx.entries[id]
		line = strconv.AppendInt(line[:0], int64(id), 10)
		line = append(line, ' ')
		line = strconv.AppendInt(line, e.Offset, 10)
		line = append(line, ' ')
		line = strconv.AppendInt(line, e.Length, 10)
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			w.RemoveIfNotClosed()
			return fmt.Errorf("failed to save key index: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		w.RemoveIfNotClosed()
		return fmt.Errorf("failed to save key index: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to save key index: %w", err)
	}
	return nil
}

func (idx *TextIndex) Close() error {
	return nil
}

// Path returns the index file path
func (idx *TextIndex) Path() string {
	return idx.path
}
