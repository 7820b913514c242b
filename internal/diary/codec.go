package diary

import (
	"fmt"
	"time"

	"github.com/MikhailWahib/diarydb/internal/record"
)

// Record layouts. Field 0 is always the class id.
//
//	Appointment:         label, start, duration (minutes), details
//	PeriodicAppointment: label, start, duration (minutes), details, period (days), until
//	Reminder:            label, date, note
//	Contact:             name, email, phone, has birthday, [birthday]

// AppointmentCodec stores single and periodic appointments in one table and
// tells them apart by class id.
type AppointmentCodec struct {
	classes map[string]int32
}

func NewAppointmentCodec(cr ClassResolver) (*AppointmentCodec, error) {
	classes, err := resolve(cr, ClassAppointment, ClassPeriodicAppointment)
	if err != nil {
		return nil, err
	}
	return &AppointmentCodec{classes: classes}, nil
}

func (c *AppointmentCodec) Encode(ev Event, r *record.Record) error {
	switch v := ev.(type) {
	case *Appointment, *PeriodicAppointment:
		return encode(c.classes, v.(encoder), r)
	}
	return fmt.Errorf("%w: %T doesn't belong with appointments", ErrInvalid, ev)
}

func (c *AppointmentCodec) Decode(id record.ObjectID, r *record.Record) (Event, error) {
	fr := &fieldReader{r: r}
	class := fr.int32()
	if fr.err != nil {
		return nil, fr.err
	}
	switch class {
	case c.classes[ClassAppointment]:
		label, start, duration, details := readAppointment(fr)
		if err := fr.done(); err != nil {
			return nil, err
		}
		return NewAppointment(id, label, start, duration, details)
	case c.classes[ClassPeriodicAppointment]:
		label, start, duration, details := readAppointment(fr)
		period := fr.int32()
		until := fr.date()
		if err := fr.done(); err != nil {
			return nil, err
		}
		return NewPeriodicAppointment(id, label, start, duration, details, int(period), until)
	}
	return nil, fmt.Errorf("%w: class %d isn't an appointment", ErrInvalid, class)
}

func readAppointment(fr *fieldReader) (label string, start time.Time, duration time.Duration, details string) {
	label = fr.string()
	start = fr.dateTime()
	duration = time.Duration(fr.int32()) * time.Minute
	details = fr.string()
	return
}

type ReminderCodec struct {
	classID int32
}

func NewReminderCodec(cr ClassResolver) (*ReminderCodec, error) {
	id, err := cr.ClassID(ClassReminder)
	if err != nil {
		return nil, fmt.Errorf("class %s: %w", ClassReminder, err)
	}
	return &ReminderCodec{classID: id}, nil
}

func (c *ReminderCodec) Encode(v *Reminder, r *record.Record) error {
	r.AppendInt32(c.classID)
	v.appendFields(r)
	return nil
}

func (c *ReminderCodec) Decode(id record.ObjectID, r *record.Record) (*Reminder, error) {
	fr := &fieldReader{r: r}
	if class := fr.int32(); fr.err == nil && class != c.classID {
		return nil, fmt.Errorf("%w: class %d isn't a reminder", ErrInvalid, class)
	}
	label := fr.string()
	date := fr.date()
	note := fr.string()
	if err := fr.done(); err != nil {
		return nil, err
	}
	return NewReminder(id, label, date, note)
}

type ContactCodec struct {
	classID int32
}

func NewContactCodec(cr ClassResolver) (*ContactCodec, error) {
	id, err := cr.ClassID(ClassContact)
	if err != nil {
		return nil, fmt.Errorf("class %s: %w", ClassContact, err)
	}
	return &ContactCodec{classID: id}, nil
}

func (c *ContactCodec) Encode(v *Contact, r *record.Record) error {
	r.AppendInt32(c.classID)
	v.appendFields(r)
	return nil
}

func (c *ContactCodec) Decode(id record.ObjectID, r *record.Record) (*Contact, error) {
	fr := &fieldReader{r: r}
	if class := fr.int32(); fr.err == nil && class != c.classID {
		return nil, fmt.Errorf("%w: class %d isn't a contact", ErrInvalid, class)
	}
	name := fr.string()
	email := fr.string()
	phone := fr.string()
	var birthday Date
	hasBirthday := fr.bool()
	if hasBirthday {
		birthday = fr.date()
	}
	if err := fr.done(); err != nil {
		return nil, err
	}
	v, err := NewContact(id, name, email, phone)
	if err != nil {
		return nil, err
	}
	if hasBirthday {
		if err := v.SetBirthday(birthday); err != nil {
			return nil, err
		}
	}
	return v, nil
}
