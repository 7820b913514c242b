package record

import (
	"fmt"
	"strconv"
	"time"
)

// Record is an ordered list of typed fields. Records are built with the
// Append methods and read back with the typed getters, which report false
// for an out-of-range index or a field of another type.
type Record struct {
	fields []Field
	loc    *time.Location
}

// New returns an empty record. Decoded date-times are placed in time.Local.
func New() *Record {
	return &Record{}
}

// Count returns the number of fields.
func (r *Record) Count() int {
	return len(r.fields)
}

// Field returns the raw field at i.
func (r *Record) Field(i int) (Field, bool) {
	if i < 0 || i >= len(r.fields) {
		return Field{}, false
	}
	return r.fields[i], true
}

// Reset drops all fields so the record can be reused.
func (r *Record) Reset() {
	r.fields = r.fields[:0]
}

// SetLocation sets the location decoded date-times are returned in.
func (r *Record) SetLocation(loc *time.Location) {
	r.loc = loc
}

func (r *Record) location() *time.Location {
	if r.loc == nil {
		return time.Local
	}
	return r.loc
}

func (r *Record) add(t FieldType, text string) {
	r.fields = append(r.fields, Field{Type: t, Text: text})
}

func (r *Record) AppendBool(v bool) {
	if v {
		r.add(BoolField, "Y")
	} else {
		r.add(BoolField, "N")
	}
}

func (r *Record) AppendChar(v byte) {
	r.add(CharField, string([]byte{v}))
}

func (r *Record) AppendInt32(v int32) {
	r.add(Int32Field, strconv.FormatInt(int64(v), 10))
}

func (r *Record) AppendFloat32(v float32) {
	r.add(Float32Field, strconv.FormatFloat(float64(v), 'g', -1, 32))
}

func (r *Record) AppendFloat64(v float64) {
	r.add(Float64Field, strconv.FormatFloat(v, 'g', -1, 64))
}

func (r *Record) AppendString(v string) {
	r.add(StringField, v)
}

func (r *Record) AppendObjectID(v ObjectID) {
	r.add(ObjectIDField, strconv.FormatInt(int64(v), 10))
}

func (r *Record) AppendDate(v Date) {
	r.add(DateField, strconv.FormatInt(v.Days(), 10))
}

// AppendDateTime stores the wall clock of v to the minute.
func (r *Record) AppendDateTime(v time.Time) {
	r.add(DateTimeField, strconv.FormatInt(minutesOf(v), 10))
}

// AppendValue appends v using the typed appender matching its Go type.
func (r *Record) AppendValue(v any) error {
	switch v := v.(type) {
	case bool:
		r.AppendBool(v)
	case byte:
		r.AppendChar(v)
	case int32:
		r.AppendInt32(v)
	case int:
		if int(int32(v)) != v {
			return fmt.Errorf("int %d overflows int32", v)
		}
		r.AppendInt32(int32(v))
	case float32:
		r.AppendFloat32(v)
	case float64:
		r.AppendFloat64(v)
	case string:
		r.AppendString(v)
	case ObjectID:
		r.AppendObjectID(v)
	case Date:
		r.AppendDate(v)
	case time.Time:
		r.AppendDateTime(v)
	default:
		return fmt.Errorf("unsupported field value %T", v)
	}
	return nil
}

func (r *Record) text(i int, t FieldType) (string, bool) {
	f, ok := r.Field(i)
	if !ok || f.Type != t {
		return "", false
	}
	return f.Text, true
}

func (r *Record) Bool(i int) (bool, bool) {
	s, ok := r.text(i, BoolField)
	if !ok {
		return false, false
	}
	switch s {
	case "Y":
		return true, true
	case "N":
		return false, true
	}
	return false, false
}

func (r *Record) Char(i int) (byte, bool) {
	s, ok := r.text(i, CharField)
	if !ok || len(s) != 1 {
		return 0, false
	}
	return s[0], true
}

func (r *Record) Int32(i int) (int32, bool) {
	s, ok := r.text(i, Int32Field)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(v), true
}

func (r *Record) Float32(i int) (float32, bool) {
	s, ok := r.text(i, Float32Field)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, false
	}
	return float32(v), true
}

func (r *Record) Float64(i int) (float64, bool) {
	s, ok := r.text(i, Float64Field)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (r *Record) String(i int) (string, bool) {
	return r.text(i, StringField)
}

func (r *Record) ObjectID(i int) (ObjectID, bool) {
	s, ok := r.text(i, ObjectIDField)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return ObjectID(v), true
}

func (r *Record) Date(i int) (Date, bool) {
	s, ok := r.text(i, DateField)
	if !ok {
		return Date{}, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Date{}, false
	}
	return DateFromDays(v), true
}

func (r *Record) DateTime(i int) (time.Time, bool) {
	s, ok := r.text(i, DateTimeField)
	if !ok {
		return time.Time{}, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return timeFromMinutes(v, r.location()), true
}
