// Package record provides the typed field container that every persisted
// entity is flattened into, and its binary encoding.
package record

import (
	"errors"
	"fmt"
	"strconv"
)

// FieldType is the type tag stored in front of every field.
// The ordinals are part of the on-disk format.
type FieldType int32

const (
	// BoolField holds "Y" or "N"
	BoolField FieldType = iota
	// CharField holds a single byte
	CharField
	Int32Field
	Float32Field
	Float64Field
	// StringField holds raw text, unescaped
	StringField
	// ObjectIDField holds the decimal id of another persisted entity
	ObjectIDField
	// DateField holds days since 1970-01-01
	DateField
	// DateTimeField holds minutes since 1970-01-01T00:00
	DateTimeField

	numFieldTypes
)

var fieldTypeNames = [...]string{
	BoolField:     "bool",
	CharField:     "char",
	Int32Field:    "int32",
	Float32Field:  "float32",
	Float64Field:  "float64",
	StringField:   "string",
	ObjectIDField: "objectid",
	DateField:     "date",
	DateTimeField: "datetime",
}

// Valid reports whether t is a known tag.
func (t FieldType) Valid() bool {
	return t >= 0 && t < numFieldTypes
}

func (t FieldType) String() string {
	if !t.Valid() {
		return "FieldType(" + strconv.Itoa(int(t)) + ")"
	}
	return fieldTypeNames[t]
}

// ObjectID identifies one persisted entity. Ids are positive and never reused.
type ObjectID int32

func (id ObjectID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Field is one positional value in a Record.
type Field struct {
	Type FieldType
	Text string
}

// Len is the byte length of the encoded text.
func (f Field) Len() int {
	return len(f.Text)
}

func (f Field) String() string {
	return fmt.Sprintf("%s:%q", f.Type, f.Text)
}

// ErrCorrupt is returned when encoded record bytes can't be decoded.
var ErrCorrupt = errors.New("corrupt record")
