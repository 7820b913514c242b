// Package diarydb persists a personal diary (appointments, reminders and
// contacts) in flat files.
//
// Each entity kind lives in two files inside the persistence folder: an
// append-only data file (<kind>.dat) holding one record per save, and a key
// index (<kind>.ids) mapping object ids to the latest record. Object ids come
// from a counter file shared by all kinds, so an id is unique across the
// whole diary.
//
// Example usage:
//
//	db, err := diarydb.Open("/path/to/diary", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	yoga, err := db.NewAppointment("Yoga", start, 45*time.Minute, "Downward Dog")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := db.Save(); err != nil {
//		log.Printf("Save failed: %v", err)
//	}
//
//	ev, ok := db.Appointment(yoga.ID())
//	if ok {
//		fmt.Println(ev.Label())
//	}
package diarydb

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/MikhailWahib/diarydb/internal/config"
	"github.com/MikhailWahib/diarydb/internal/diary"
	"github.com/MikhailWahib/diarydb/internal/engine"
	"github.com/MikhailWahib/diarydb/internal/record"
)

// Config is an alias for config.Config, re-exported for user convenience.
type Config = config.Config

// DefaultConfig returns a Config struct populated with default values. Re-exported for user convenience.
var DefaultConfig = config.DefaultConfig

// LoadConfig reads a YAML config file.
var LoadConfig = config.LoadFile

// Key index backends
const (
	IndexText = config.IndexText
	IndexBolt = config.IndexBolt
)

type (
	ObjectID            = record.ObjectID
	Date                = diary.Date
	Event               = diary.Event
	Appointment         = diary.Appointment
	PeriodicAppointment = diary.PeriodicAppointment
	Reminder            = diary.Reminder
	Contact             = diary.Contact
)

// Repository is the session cache and persistence of one entity kind.
type Repository[T engine.Entity] = engine.Repository[T]

// ErrInvalid is returned when an entity would break one of its invariants.
var ErrInvalid = diary.ErrInvalid

// NewDate returns the given day, or ErrInvalid if it doesn't exist.
var NewDate = diary.NewDate

// DB is an open diary. Its methods are safe for concurrent use; the
// repositories returned by Appointments, Reminders and Contacts are not.
type DB struct {
	mu     sync.Mutex
	engine *engine.Engine
	logger *slog.Logger

	appointments *engine.Repository[diary.Event]
	reminders    *engine.Repository[*diary.Reminder]
	contacts     *engine.Repository[*diary.Contact]
}

// Open opens or creates the diary in dir, or in cfg.Dir if dir is empty.
// The folder is created if it doesn't exist.
func Open(dir string, cfg *Config) (*DB, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if dir == "" {
		dir = cfg.Dir
	}
	if dir == "" {
		return nil, errors.New("diarydb: no persistence folder given")
	}

	e := engine.NewEngine(cfg)
	if err := e.OpenDB(dir); err != nil {
		return nil, err
	}
	db := &DB{engine: e, logger: e.Logger()}
	if err := db.open(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) open() error {
	cfg := db.engine.Config()

	ac, err := diary.NewAppointmentCodec(db.engine)
	if err != nil {
		return err
	}
	rc, err := diary.NewReminderCodec(db.engine)
	if err != nil {
		return err
	}
	cc, err := diary.NewContactCodec(db.engine)
	if err != nil {
		return err
	}

	if db.appointments, err = engine.NewRepository[diary.Event](db.engine, cfg.AppointmentsName, ac); err != nil {
		return err
	}
	if db.reminders, err = engine.NewRepository[*diary.Reminder](db.engine, cfg.RemindersName, rc); err != nil {
		return err
	}
	if db.contacts, err = engine.NewRepository[*diary.Contact](db.engine, cfg.ContactsName, cc); err != nil {
		return err
	}
	return nil
}

// Appointments returns the repository holding single and periodic appointments.
func (db *DB) Appointments() *Repository[Event] { return db.appointments }

func (db *DB) Reminders() *Repository[*Reminder] { return db.reminders }

func (db *DB) Contacts() *Repository[*Contact] { return db.contacts }

// NewAppointment creates an appointment with a fresh id. It is written to
// disk by the next Save.
func (db *DB) NewAppointment(label string, start time.Time, duration time.Duration, details string) (*Appointment, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var a *diary.Appointment
	_, err := db.appointments.CreateNew(func(id ObjectID) (Event, error) {
		var err error
		if a, err = diary.NewAppointment(id, label, start, duration, details); err != nil {
			return nil, err
		}
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// NewPeriodicAppointment creates an appointment repeating every period days
// up to and including until.
func (db *DB) NewPeriodicAppointment(label string, start time.Time, duration time.Duration, details string, period int, until Date) (*PeriodicAppointment, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var p *diary.PeriodicAppointment
	_, err := db.appointments.CreateNew(func(id ObjectID) (Event, error) {
		var err error
		if p, err = diary.NewPeriodicAppointment(id, label, start, duration, details, period, until); err != nil {
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (db *DB) NewReminder(label string, date Date, note string) (*Reminder, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.reminders.CreateNew(func(id ObjectID) (*diary.Reminder, error) {
		return diary.NewReminder(id, label, date, note)
	})
}

func (db *DB) NewContact(name, email, phone string) (*Contact, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.contacts.CreateNew(func(id ObjectID) (*diary.Contact, error) {
		return diary.NewContact(id, name, email, phone)
	})
}

// Appointment returns the appointment with id. Within one DB the same id
// always yields the same value.
func (db *DB) Appointment(id ObjectID) (Event, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.appointments.Get(id)
}

func (db *DB) Reminder(id ObjectID) (*Reminder, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.reminders.Get(id)
}

func (db *DB) Contact(id ObjectID) (*Contact, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.contacts.Get(id)
}

// EventsOn returns the appointments and reminders occurring on d, saved or
// not, ordered by id. Records that can't be read are logged and skipped.
func (db *DB) EventsOn(d Date) ([]Event, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.loadAll(db.appointments.LoadAll); err != nil {
		return nil, err
	}
	if err := db.loadAll(db.reminders.LoadAll); err != nil {
		return nil, err
	}

	var events []Event
	for _, ev := range db.appointments.All() {
		if ev.OccursOn(d) {
			events = append(events, ev)
		}
	}
	for _, r := range db.reminders.All() {
		if r.OccursOn(d) {
			events = append(events, r)
		}
	}
	slices.SortFunc(events, func(a, b Event) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	return events, nil
}

// BirthdaysOn returns the contacts whose birthday falls on d.
func (db *DB) BirthdaysOn(d Date) ([]*Contact, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.loadAll(db.contacts.LoadAll); err != nil {
		return nil, err
	}
	var res []*Contact
	for _, c := range db.contacts.All() {
		if c.HasBirthdayOn(d) {
			res = append(res, c)
		}
	}
	return res, nil
}

func (db *DB) loadAll(load func() error) error {
	err := load()
	if err == nil {
		return nil
	}
	if errors.Is(err, engine.ErrReleased) {
		return err
	}
	db.logger.Warn("diarydb: skipped unreadable records", slog.Any("err", err))
	return nil
}

// Save writes every entity created or loaded through db, changed or not.
// Failures don't stop the other entities from being saved; they are all
// returned together.
func (db *DB) Save() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return errors.Join(
		db.appointments.Save(),
		db.reminders.Save(),
		db.contacts.Save(),
	)
}

// Compact rewrites the data file of kind (one of the configured kind names)
// without the records later saves have superseded. It returns the number of
// bytes reclaimed.
func (db *DB) Compact(kind string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var t *engine.Table
	cfg := db.engine.Config()
	switch kind {
	case cfg.AppointmentsName:
		t = db.appointments.Table()
	case cfg.RemindersName:
		t = db.reminders.Table()
	case cfg.ContactsName:
		t = db.contacts.Table()
	default:
		return 0, fmt.Errorf("diarydb: unknown kind %q", kind)
	}
	if t == nil {
		return 0, engine.ErrReleased
	}
	return t.Compact()
}

// Close releases all files. Anything not saved is lost. Close can be called
// multiple times.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var errs []error
	if db.appointments != nil {
		errs = append(errs, db.appointments.Close())
	}
	if db.reminders != nil {
		errs = append(errs, db.reminders.Close())
	}
	if db.contacts != nil {
		errs = append(errs, db.contacts.Close())
	}
	errs = append(errs, db.engine.Close())
	return errors.Join(errs...)
}
