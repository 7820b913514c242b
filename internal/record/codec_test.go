package record_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/MikhailWahib/diarydb/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestCodec_Layout(t *testing.T) {
	r := record.New()
	r.AppendString("ab")
	r.AppendInt32(7)

	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	require.NoError(t, err)

	expectedLen := 4 + (4 + 4 + 2) + (4 + 4 + 1)
	assert.EqualValues(t, expectedLen, n)
	assert.EqualValues(t, expectedLen, r.Size())

	b := buf.Bytes()
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[0:4]), "field count")
	assert.Equal(t, uint32(record.StringField), binary.LittleEndian.Uint32(b[4:8]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[8:12]))
	assert.Equal(t, "ab", string(b[12:14]))
	assert.Equal(t, uint32(record.Int32Field), binary.LittleEndian.Uint32(b[14:18]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(b[18:22]))
	assert.Equal(t, "7", string(b[22:23]))
}

func TestCodec_RoundTrip(t *testing.T) {
	r, when := sampleRecord()

	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	require.NoError(t, err)

	got := record.New()
	consumed, err := got.ReadFrom(&buf)
	require.NoError(t, err)
	assert.Equal(t, n, consumed)
	require.Equal(t, r.Count(), got.Count())

	for i := 0; i < r.Count(); i++ {
		want, _ := r.Field(i)
		have, _ := got.Field(i)
		assert.Equal(t, want, have, "field %d", i)
	}
	dt, ok := got.DateTime(8)
	require.True(t, ok)
	assert.True(t, when.Equal(dt))
}

func TestCodec_EmptyRecordAndEmbeddedDelimiters(t *testing.T) {
	empty := record.New()
	data, err := empty.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, 4)

	r := record.New()
	r.AppendString("line one\nline two\x00 with spaces")
	r.AppendString("")
	data, err = r.MarshalBinary()
	require.NoError(t, err)

	got := record.New()
	require.NoError(t, got.UnmarshalBinary(data))
	s, ok := got.String(0)
	require.True(t, ok)
	assert.Equal(t, "line one\nline two\x00 with spaces", s)
	s, ok = got.String(1)
	require.True(t, ok)
	assert.Equal(t, "", s)
}

func TestCodec_WriteFailure(t *testing.T) {
	r, _ := sampleRecord()
	n, err := r.WriteTo(failingWriter{})
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestCodec_TruncatedKeepsDecodedFields(t *testing.T) {
	r := record.New()
	r.AppendInt32(1)
	r.AppendString("second field")
	data, err := r.MarshalBinary()
	require.NoError(t, err)

	got := record.New()
	_, err = got.ReadFrom(bytes.NewReader(data[:len(data)-3]))
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 1, got.Count(), "fields before the failure remain")

	_, err = record.New().ReadFrom(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF)
}

func TestCodec_Corrupt(t *testing.T) {
	var b []byte
	b = binary.LittleEndian.AppendUint32(b, 1)
	b = binary.LittleEndian.AppendUint32(b, 99) // no such field type
	b = binary.LittleEndian.AppendUint32(b, 0)
	err := record.New().UnmarshalBinary(b)
	assert.ErrorIs(t, err, record.ErrCorrupt)

	b = b[:0]
	b = binary.LittleEndian.AppendUint32(b, 1)
	b = binary.LittleEndian.AppendUint32(b, uint32(record.StringField))
	b = binary.LittleEndian.AppendUint32(b, record.MaxFieldSize+1)
	err = record.New().UnmarshalBinary(b)
	assert.ErrorIs(t, err, record.ErrCorrupt)

	r := record.New()
	r.AppendBool(true)
	data, _ := r.MarshalBinary()
	err = record.New().UnmarshalBinary(append(data, 0xff))
	assert.ErrorIs(t, err, record.ErrCorrupt)
}
