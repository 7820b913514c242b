// Package store implements the append-only data file that holds encoded
// records back to back.
//
// File layout: [4 bytes BytesUsed, little-endian][record][record]...
// BytesUsed counts record bytes only, not the header. Records are never
// rewritten, so an offset handed out by Append stays valid for the life of
// the file.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MikhailWahib/diarydb/internal/diskmanager"
	"github.com/MikhailWahib/diarydb/internal/record"
)

// HeaderSize is the size of the bytes-used header at offset 0
const HeaderSize = 4

var (
	ErrClosed  = errors.New("store is closed")
	ErrCorrupt = errors.New("corrupt data file")
)

// Options tune a Store.
type Options struct {
	// Sync fsyncs the file after every append.
	Sync   bool
	Logger *slog.Logger
}

// Store is an append-only file of records. It is not safe for concurrent use.
type Store struct {
	dm     diskmanager.DiskManager
	path   string
	file   diskmanager.FileHandle
	used   int64
	sync   bool
	logger *slog.Logger
	buf    []byte
}

// Open opens or creates the data file at path. A new file gets a zero
// header; an existing one has its header loaded.
func Open(dm diskmanager.DiskManager, path string, opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	file, err := dm.Open(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	s := &Store{
		dm:     dm,
		path:   path,
		file:   file,
		sync:   opts.Sync,
		logger: opts.Logger,
	}
	if err := s.loadHeader(); err != nil {
		_ = dm.Close(path)
		return nil, err
	}
	return s, nil
}

func (s *Store) loadHeader() error {
	stat, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat data file: %w", err)
	}
	size := stat.Size()

	if size == 0 {
		if err := s.writeHeader(0); err != nil {
			return err
		}
		return s.file.Sync()
	}
	if size < HeaderSize {
		return fmt.Errorf("%s: %w: %d byte file is shorter than its header", s.path, ErrCorrupt, size)
	}

	var hdr [HeaderSize]byte
	if _, err := s.file.ReadAt(hdr[:], 0); err != nil {
		return fmt.Errorf("failed to read data file header: %w", err)
	}
	used := int64(binary.LittleEndian.Uint32(hdr[:]))
	if HeaderSize+used > size {
		return fmt.Errorf("%s: %w: header claims %d bytes, file has %d", s.path, ErrCorrupt, used, size-HeaderSize)
	}
	if HeaderSize+used < size {
		// left behind by an append whose header update failed; the next
		// append overwrites it
		s.logger.Warn("store: unaccounted bytes after last record",
			slog.String("file", s.path), slog.Int64("bytes", size-HeaderSize-used))
	}
	s.used = used
	return nil
}

func (s *Store) writeHeader(used int64) error {
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(used))
	if _, err := s.file.WriteAt(hdr[:], 0); err != nil {
		return fmt.Errorf("failed to write data file header: %w", err)
	}
	return nil
}

// Append writes r at the end of the file and returns where it went. If any
// step fails the header and BytesUsed are left unchanged.
func (s *Store) Append(r *record.Record) (offset, length int64, err error) {
	if s.file == nil {
		return 0, 0, ErrClosed
	}
	s.buf, err = r.AppendBinary(s.buf[:0])
	if err != nil {
		return 0, 0, err
	}
	offset = HeaderSize + s.used
	length = int64(len(s.buf))
	if uint64(s.used+length) > 1<<32-1 {
		return 0, 0, fmt.Errorf("%s: data file would exceed 4 GiB", s.path)
	}

	if _, err := s.file.WriteAt(s.buf, offset); err != nil {
		return 0, 0, fmt.Errorf("failed to append record: %w", err)
	}
	if err := s.writeHeader(s.used + length); err != nil {
		return 0, 0, err
	}
	if s.sync {
		if err := s.file.Sync(); err != nil {
			return 0, 0, fmt.Errorf("failed to sync data file: %w", err)
		}
	}
	s.used += length

	s.logger.Debug("store: appended",
		slog.String("file", s.path), slog.Int64("offset", offset), slog.Int64("length", length))
	return offset, length, nil
}

// ReadInto decodes the record at offset into r. Decoding is confined to
// [offset, offset+length), and a record that ends short of length is logged
// but still returned.
func (s *Store) ReadInto(offset, length int64, r *record.Record) error {
	if s.file == nil {
		return ErrClosed
	}
	end := HeaderSize + s.used
	if offset < HeaderSize || length < record.LengthSize || offset+length > end {
		return fmt.Errorf("%s: %w: range %d+%d outside records [%d, %d)",
			s.path, ErrCorrupt, offset, length, HeaderSize, end)
	}

	n, err := r.ReadFrom(io.NewSectionReader(s.file, offset, length))
	if err != nil {
		return fmt.Errorf("failed to read record at %d: %w", offset, err)
	}
	if n != length {
		s.logger.Warn("store: record length differs from index",
			slog.String("file", s.path), slog.Int64("offset", offset),
			slog.Int64("want", length), slog.Int64("got", n))
	}
	return nil
}

// Read decodes and returns the record at offset.
func (s *Store) Read(offset, length int64) (*record.Record, error) {
	r := record.New()
	if err := s.ReadInto(offset, length, r); err != nil {
		return nil, err
	}
	return r, nil
}

// BytesUsed returns the total size of all appended records.
func (s *Store) BytesUsed() int64 {
	return s.used
}

// BytesTotal returns the size of the file: BytesUsed plus the header.
func (s *Store) BytesTotal() int64 {
	return HeaderSize + s.used
}

// Path returns the data file path
func (s *Store) Path() string {
	return s.path
}

// Close releases the file handle. It can be called multiple times.
func (s *Store) Close() error {
	if s.file == nil {
		return nil
	}
	file := s.file
	s.file = nil

	var syncErr error
	if !s.sync {
		syncErr = file.Sync()
	}
	return errors.Join(syncErr, s.dm.Close(s.path))
}
