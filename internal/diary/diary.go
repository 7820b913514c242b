// Package diary holds the diary's entities and the record layouts they are
// persisted with.
//
// Every record starts with the entity's class id (Int32) so a table shared
// by several entity variants can tell them apart on load.
package diary

import (
	"errors"
	"fmt"
	"time"

	"github.com/MikhailWahib/diarydb/internal/record"
)

// ErrInvalid is returned when an entity would break one of its invariants.
var ErrInvalid = errors.New("invalid diary entry")

// Class names registered in the class table
const (
	ClassAppointment         = "Appointment"
	ClassPeriodicAppointment = "PeriodicAppointment"
	ClassReminder            = "Reminder"
	ClassContact             = "Contact"
)

// Date is a calendar day
type Date = record.Date

// NewDate returns the given day, or ErrInvalid if it doesn't exist.
func NewDate(year int, month time.Month, day int) (Date, error) {
	d := Date{Year: year, Month: month, Day: day}
	if !d.Valid() {
		return Date{}, fmt.Errorf("%w: no such date %04d-%02d-%02d", ErrInvalid, year, int(month), day)
	}
	return d, nil
}

// Event is something that happens on particular days.
type Event interface {
	ID() record.ObjectID
	Label() string
	IsRepeating() bool
	OccursOn(d Date) bool
}

// ClassResolver maps class names to the ids stored in records.
type ClassResolver interface {
	ClassID(name string) (int32, error)
}

// encoder is implemented by every persisted entity.
type encoder interface {
	className() string
	appendFields(r *record.Record)
}

func encode(classes map[string]int32, v encoder, r *record.Record) error {
	id, ok := classes[v.className()]
	if !ok {
		return fmt.Errorf("no class id for %s", v.className())
	}
	r.AppendInt32(id)
	v.appendFields(r)
	return nil
}

func resolve(cr ClassResolver, names ...string) (map[string]int32, error) {
	ids := make(map[string]int32, len(names))
	for _, name := range names {
		id, err := cr.ClassID(name)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", name, err)
		}
		ids[name] = id
	}
	return ids, nil
}

// fieldReader pulls typed fields off a record in order and remembers the
// first one that is missing or of the wrong type.
type fieldReader struct {
	r   *record.Record
	i   int
	err error
}

func (fr *fieldReader) check(ok bool, t record.FieldType) {
	if !ok && fr.err == nil {
		fr.err = fmt.Errorf("%w: field %d is not a valid %s", ErrInvalid, fr.i, t)
	}
	fr.i++
}

func (fr *fieldReader) int32() int32 {
	v, ok := fr.r.Int32(fr.i)
	fr.check(ok, record.Int32Field)
	return v
}

func (fr *fieldReader) string() string {
	v, ok := fr.r.String(fr.i)
	fr.check(ok, record.StringField)
	return v
}

func (fr *fieldReader) bool() bool {
	v, ok := fr.r.Bool(fr.i)
	fr.check(ok, record.BoolField)
	return v
}

func (fr *fieldReader) date() Date {
	v, ok := fr.r.Date(fr.i)
	fr.check(ok, record.DateField)
	return v
}

func (fr *fieldReader) dateTime() time.Time {
	v, ok := fr.r.DateTime(fr.i)
	fr.check(ok, record.DateTimeField)
	return v
}

// done fails if fields remain unread.
func (fr *fieldReader) done() error {
	if fr.err == nil && fr.i != fr.r.Count() {
		fr.err = fmt.Errorf("%w: %d fields, want %d", ErrInvalid, fr.r.Count(), fr.i)
	}
	return fr.err
}
