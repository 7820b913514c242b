// Package mockdm provides a mock implementation of the disk manager for testing
package mockdm

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/MikhailWahib/diarydb/internal/diskmanager"
)

// ErrInjected is returned by operations on a MockFile set up to fail.
var ErrInjected = errors.New("mockdm: injected failure")

// MockFile implements diskmanager.FileHandle for testing purposes
type MockFile struct {
	mu   sync.Mutex
	data []byte
	name string

	// FailWriteAfter makes WriteAt fail once this many more successful
	// writes have happened. Negative disables.
	FailWriteAfter int
	FailReads      bool
	FailSync       bool
}

// WriteAt writes len(b) bytes to the file starting at byte offset off
func (m *MockFile) WriteAt(b []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWriteAfter == 0 {
		return 0, ErrInjected
	}
	if m.FailWriteAfter > 0 {
		m.FailWriteAfter--
	}
	// Extend the slice if needed
	requiredLen := int(off) + len(b)
	if requiredLen > len(m.data) {
		newData := make([]byte, requiredLen)
		copy(newData, m.data)
		m.data = newData
	}
	return copy(m.data[off:], b), nil
}

// ReadAt reads len(b) bytes from the file starting at byte offset off
func (m *MockFile) ReadAt(b []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailReads {
		return 0, ErrInjected
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(b, m.data[off:])
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

// Close closes the mock file
func (m *MockFile) Close() error {
	return nil
}

// Sync simulates syncing file contents to disk
func (m *MockFile) Sync() error {
	if m.FailSync {
		return ErrInjected
	}
	return nil
}

// Stat returns file information
func (m *MockFile) Stat() (os.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &testFileInfo{size: int64(len(m.data)), name: m.name}, nil
}

// Bytes returns a copy of the file contents.
func (m *MockFile) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// Truncate cuts the file to size bytes.
func (m *MockFile) Truncate(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if size < len(m.data) {
		m.data = m.data[:size]
	}
}

type testFileInfo struct {
	size int64
	name string
}

func (m *testFileInfo) Name() string       { return m.name }
func (m *testFileInfo) Size() int64        { return m.size }
func (m *testFileInfo) Mode() os.FileMode  { return 0644 }
func (m *testFileInfo) ModTime() time.Time { return time.Now() }
func (m *testFileInfo) IsDir() bool        { return false }
func (m *testFileInfo) Sys() any           { return nil }

// MockDiskManager implements diskmanager.DiskManager interface for testing
type MockDiskManager struct {
	files map[string]*MockFile
	refs  map[string]int
}

// NewMockDiskManager creates a new MockDiskManager instance
func NewMockDiskManager() *MockDiskManager {
	return &MockDiskManager{
		files: make(map[string]*MockFile),
		refs:  make(map[string]int),
	}
}

// Open creates or opens a mock file
func (dm *MockDiskManager) Open(path string, _ int, _ os.FileMode) (diskmanager.FileHandle, error) {
	dm.refs[path]++
	if file, exists := dm.files[path]; exists {
		return file, nil
	}

	file := &MockFile{
		data:           []byte{},
		name:           path,
		FailWriteAfter: -1,
	}
	dm.files[path] = file
	return file, nil
}

// File returns the mock file at path, or nil.
func (dm *MockDiskManager) File(path string) *MockFile {
	return dm.files[path]
}

// Rename moves a mock file
func (dm *MockDiskManager) Rename(oldPath, newPath string) error {
	file, exists := dm.files[oldPath]
	if !exists {
		return os.ErrNotExist
	}
	delete(dm.files, oldPath)
	file.name = newPath
	dm.files[newPath] = file
	return nil
}

// Delete removes a mock file
func (dm *MockDiskManager) Delete(path string) error {
	delete(dm.files, path)
	delete(dm.refs, path)
	return nil
}

// List returns mock files matching the filter
func (dm *MockDiskManager) List(_ string, filter string) ([]string, error) {
	var files []string
	for name := range dm.files {
		if filter == "" || strings.Contains(name, filter) {
			files = append(files, name)
		}
	}
	return files, nil
}

// Close drops a reference to a mock file; contents are kept
func (dm *MockDiskManager) Close(path string) error {
	if dm.refs[path] > 0 {
		dm.refs[path]--
	}
	return nil
}

// Refs returns the open reference count of path
func (dm *MockDiskManager) Refs(path string) int {
	return dm.refs[path]
}
