// Package sequence hands out persistent, monotonically increasing integers:
// object ids from a single-line counter file, and class ids from a
// name/id table.
//
// Every allocation rewrites its file before the new value is returned, so a
// value is never handed out twice, even across restarts. Values the caller
// drops are simply skipped.
package sequence

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/kjk/common/atomicfile"

	"github.com/MikhailWahib/diarydb/internal/record"
)

// Allocator issues object ids from a counter file holding the last id given
// out. It keeps no state in memory; the file is the source of truth.
type Allocator struct {
	path string
}

// NewAllocator returns an allocator backed by path. The file is created on
// the first NextID.
func NewAllocator(path string) *Allocator {
	return &Allocator{path: path}
}

// Current returns the last id handed out, 0 if none.
func (a *Allocator) Current() (record.ObjectID, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read id counter: %w", err)
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: invalid id counter %q", a.path, s)
	}
	return record.ObjectID(n), nil
}

// NextID increments the counter, persists it and returns the new id.
func (a *Allocator) NextID() (record.ObjectID, error) {
	cur, err := a.Current()
	if err != nil {
		return 0, err
	}
	if cur == math.MaxInt32 {
		return 0, fmt.Errorf("%s: id counter exhausted", a.path)
	}
	next := cur + 1
	if err := writeFileAtomic(a.path, []byte(next.String()+"\n")); err != nil {
		return 0, fmt.Errorf("failed to write id counter: %w", err)
	}
	return next, nil
}

// Path returns the counter file path
func (a *Allocator) Path() string {
	return a.path
}

func writeFileAtomic(path string, data []byte) error {
	w, err := atomicfile.New(path)
	if err != nil {
		return err
	}
	// calling Close() twice is a no-op
	defer w.Close()

	if _, err = w.Write(data); err != nil {
		return err
	}
	return w.Close()
}
