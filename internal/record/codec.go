package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// LengthSize is the size in bytes of every integer in the encoding
const LengthSize = 4

// FieldPrefixSize is the per-field overhead (type tag + text length)
const FieldPrefixSize = 2 * LengthSize

// MaxFieldSize bounds a single field's text; larger lengths in stored data
// are treated as corruption.
const MaxFieldSize = 16 * 1024 * 1024

// Size returns the number of bytes WriteTo will produce.
func (r *Record) Size() int64 {
	n := int64(LengthSize)
	for _, f := range r.fields {
		n += FieldPrefixSize + int64(len(f.Text))
	}
	return n
}

// AppendBinary appends the encoded record to b.
// Format: [4 bytes Count] then per field [4 bytes Type][4 bytes Len][Text],
// all integers little-endian.
func (r *Record) AppendBinary(b []byte) ([]byte, error) {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(r.fields)))
	for _, f := range r.fields {
		b = binary.LittleEndian.AppendUint32(b, uint32(f.Type))
		b = binary.LittleEndian.AppendUint32(b, uint32(len(f.Text)))
		b = append(b, f.Text...)
	}
	return b, nil
}

// MarshalBinary returns the encoded record.
func (r *Record) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(make([]byte, 0, r.Size()))
}

// WriteTo writes the encoded record to w in a single Write and returns the
// number of bytes written. On error nothing should be assumed about w.
func (r *Record) WriteTo(w io.Writer) (int64, error) {
	buf, err := r.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	if err != nil {
		return int64(n), fmt.Errorf("failed to write record: %w", err)
	}
	return int64(n), nil
}

// ReadFrom decodes one record from rd, appending its fields to r, and
// returns the number of bytes consumed. On error the fields decoded before
// the failure stay in r.
func (r *Record) ReadFrom(rd io.Reader) (int64, error) {
	var hdr [FieldPrefixSize]byte
	var total int64

	if _, err := io.ReadFull(rd, hdr[:LengthSize]); err != nil {
		return total, fmt.Errorf("failed to read field count: %w", err)
	}
	total += LengthSize
	count := binary.LittleEndian.Uint32(hdr[:LengthSize])

	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(rd, hdr[:]); err != nil {
			return total, fmt.Errorf("failed to read field %d header: %w", i, err)
		}
		total += FieldPrefixSize

		t := FieldType(binary.LittleEndian.Uint32(hdr[:LengthSize]))
		if !t.Valid() {
			return total, fmt.Errorf("field %d: %w: unknown type %d", i, ErrCorrupt, t)
		}
		n := binary.LittleEndian.Uint32(hdr[LengthSize:])
		if n > MaxFieldSize {
			return total, fmt.Errorf("field %d: %w: length %d", i, ErrCorrupt, n)
		}

		text := make([]byte, n)
		if _, err := io.ReadFull(rd, text); err != nil {
			return total, fmt.Errorf("failed to read field %d text: %w", i, err)
		}
		total += int64(n)
		r.add(t, string(text))
	}
	return total, nil
}

// UnmarshalBinary replaces r's fields with the record encoded in data.
// Trailing bytes are an error.
func (r *Record) UnmarshalBinary(data []byte) error {
	r.Reset()
	br := bytes.NewReader(data)
	if _, err := r.ReadFrom(br); err != nil {
		return err
	}
	if br.Len() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, br.Len())
	}
	return nil
}
