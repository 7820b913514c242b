// Package diskmanager provides interfaces and implementations for managing disk-based file operations.
// It hands out shared, reference-counted file handles so that several owners of
// the same path use one OS file and the file is closed only by its last owner.
package diskmanager

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// FileHandle abstracts file operations with random access, syncing, and stat.
type FileHandle interface {
	// ReadAt reads len(b) bytes from the file starting at byte offset off.
	// It returns the number of bytes read and any error encountered.
	ReadAt(b []byte, off int64) (int, error)
	// WriteAt writes len(b) bytes to the file starting at byte offset off.
	// It returns the number of bytes written and any error encountered.
	WriteAt(b []byte, off int64) (int, error)
	// Close closes the file handle, rendering it unusable for I/O.
	Close() error
	// Sync commits the current contents of the file to stable storage.
	Sync() error
	// Stat returns the file stat
	Stat() (os.FileInfo, error)
}

type fileHandle struct {
	file *os.File
}

// NewFileHandle wraps an *os.File into a FileHandle implementation.
func NewFileHandle(file *os.File) FileHandle { return &fileHandle{file: file} }

func (fh *fileHandle) ReadAt(b []byte, off int64) (int, error) { return fh.file.ReadAt(b, off) }

func (fh *fileHandle) WriteAt(b []byte, off int64) (int, error) { return fh.file.WriteAt(b, off) }

func (fh *fileHandle) Close() error { return fh.file.Close() }

func (fh *fileHandle) Sync() error { return fh.file.Sync() }

func (fh *fileHandle) Stat() (os.FileInfo, error) { return fh.file.Stat() }

// DiskManager defines methods for file operations.
type DiskManager interface {
	// Open opens a file with specified path, flags and permissions.
	// If the file is already open, returns the existing handle and takes
	// another reference to it.
	Open(path string, flags int, perm os.FileMode) (FileHandle, error)
	// Close drops one reference to the file at path and closes the handle
	// when no references remain. Closing a path that isn't open is a no-op.
	Close(path string) error
	// Rename moves oldPath over newPath. Neither path may be open.
	Rename(oldPath, newPath string) error
	// Delete removes the named file and closes its handle if open.
	Delete(path string) error
	// List returns a slice of filenames in the specified directory
	// that contain the filter string. Empty filter matches all files.
	List(dir string, filter string) ([]string, error)
	// Refs returns the number of open references to path.
	Refs(path string) int
}

type openFile struct {
	handle FileHandle
	refs   int
}

type diskManager struct {
	mu    sync.Mutex
	files map[string]*openFile
}

// NewDiskManager creates a new DiskManager instance.
func NewDiskManager() DiskManager {
	return &diskManager{
		files: make(map[string]*openFile),
	}
}

// Open opens a file with the given flags and permissions.
// It caches the file handle keyed by path.
func (dm *diskManager) Open(path string, flags int, perm os.FileMode) (FileHandle, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if of, exists := dm.files[path]; exists {
		of.refs++
		return of.handle, nil
	}
	file, err := os.OpenFile(path, flags, perm)
	if err != nil {
		return nil, err
	}
	handle := NewFileHandle(file)
	dm.files[path] = &openFile{handle: handle, refs: 1}
	return handle, nil
}

func (dm *diskManager) Close(path string) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	of, exists := dm.files[path]
	if !exists {
		return nil
	}
	of.refs--
	if of.refs > 0 {
		return nil
	}
	delete(dm.files, path)
	return of.handle.Close()
}

func (dm *diskManager) Rename(oldPath, newPath string) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	for _, p := range []string{oldPath, newPath} {
		if _, open := dm.files[p]; open {
			return fmt.Errorf("rename %s: %s is open", oldPath, p)
		}
	}
	return os.Rename(oldPath, newPath)
}

func (dm *diskManager) Delete(path string) error {
	dm.mu.Lock()
	if of, exists := dm.files[path]; exists {
		_ = of.handle.Close()
		delete(dm.files, path)
	}
	dm.mu.Unlock()
	return os.Remove(path)
}

func (dm *diskManager) List(dir string, filter string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filter == "" || strings.Contains(entry.Name(), filter) {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

func (dm *diskManager) Refs(path string) int {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if of, exists := dm.files[path]; exists {
		return of.refs
	}
	return 0
}
