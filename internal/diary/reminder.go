package diary

import (
	"fmt"

	"github.com/MikhailWahib/diarydb/internal/record"
)

// Reminder is a note attached to one day.
type Reminder struct {
	id    record.ObjectID
	label string
	date  Date
	note  string
}

func NewReminder(id record.ObjectID, label string, date Date, note string) (*Reminder, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: object id %d", ErrInvalid, id)
	}
	r := &Reminder{id: id, note: note}
	if label == "" {
		return nil, fmt.Errorf("%w: empty label", ErrInvalid)
	}
	r.label = label
	if err := r.Reschedule(date); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reminder) ID() record.ObjectID { return r.id }
func (r *Reminder) Label() string { return r.label }
func (r *Reminder) Date() Date { return r.date }
func (r *Reminder) Note() string { return r.note }
func (r *Reminder) SetNote(note string) { r.note = note }
func (r *Reminder) IsRepeating() bool { return false }
func (r *Reminder) OccursOn(d Date) bool { return r.date == d }

// Reschedule moves the reminder to another day.
func (r *Reminder) Reschedule(date Date) error {
	if !date.Valid() {
		return fmt.Errorf("%w: date %v", ErrInvalid, date)
	}
	r.date = date
	return nil
}

func (r *Reminder) className() string { return ClassReminder }

func (r *Reminder) appendFields(rec *record.Record) {
	rec.AppendString(r.label)
	rec.AppendDate(r.date)
	rec.AppendString(r.note)
}

var _ Event = (*Reminder)(nil)
