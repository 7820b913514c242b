package diary

import (
	"fmt"
	"time"

	"github.com/MikhailWahib/diarydb/internal/record"
)

// Contact is an address book entry. It isn't an Event, but a birthday
// makes it show up once a year.
type Contact struct {
	id          record.ObjectID
	name        string
	email       string
	phone       string
	birthday    Date
	hasBirthday bool
}

func NewContact(id record.ObjectID, name, email, phone string) (*Contact, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: object id %d", ErrInvalid, id)
	}
	c := &Contact{id: id, email: email, phone: phone}
	if err := c.SetName(name); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Contact) ID() record.ObjectID { return c.id }
func (c *Contact) Name() string { return c.name }
func (c *Contact) Email() string { return c.email }
func (c *Contact) Phone() string { return c.phone }
func (c *Contact) SetEmail(email string) { c.email = email }
func (c *Contact) SetPhone(phone string) { c.phone = phone }
func (c *Contact) Birthday() (Date, bool) { return c.birthday, c.hasBirthday }

func (c *Contact) SetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalid)
	}
	c.name = name
	return nil
}

func (c *Contact) SetBirthday(d Date) error {
	if !d.Valid() {
		return fmt.Errorf("%w: birthday %v", ErrInvalid, d)
	}
	c.birthday, c.hasBirthday = d, true
	return nil
}

func (c *Contact) ClearBirthday() {
	c.birthday, c.hasBirthday = Date{}, false
}

// HasBirthdayOn reports whether d is the contact's birthday. Someone born on
// February 29 celebrates on February 28 in other years.
func (c *Contact) HasBirthdayOn(d Date) bool {
	if !c.hasBirthday || d.Before(c.birthday) {
		return false
	}
	b := c.birthday
	if b.Month == time.February && b.Day == 29 {
		if _, err := NewDate(d.Year, time.February, 29); err != nil {
			b.Day = 28
		}
	}
	return b.Month == d.Month && b.Day == d.Day
}

func (c *Contact) className() string { return ClassContact }

func (c *Contact) appendFields(r *record.Record) {
	r.AppendString(c.name)
	r.AppendString(c.email)
	r.AppendString(c.phone)
	r.AppendBool(c.hasBirthday)
	if c.hasBirthday {
		r.AppendDate(c.birthday)
	}
}
