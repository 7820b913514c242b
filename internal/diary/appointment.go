package diary

import (
	"fmt"
	"math"
	"time"

	"github.com/MikhailWahib/diarydb/internal/record"
)

// Appointment is a single event with a start time and a duration.
type Appointment struct {
	id       record.ObjectID
	label    string
	start    time.Time
	duration time.Duration
	details  string
}

// NewAppointment returns an appointment starting at start. Seconds are
// dropped from start and duration, which must be at least a minute.
func NewAppointment(id record.ObjectID, label string, start time.Time, duration time.Duration, details string) (*Appointment, error) {
	a := &Appointment{id: id, details: details}
	if id <= 0 {
		return nil, fmt.Errorf("%w: object id %d", ErrInvalid, id)
	}
	if err := a.SetLabel(label); err != nil {
		return nil, err
	}
	if err := a.schedule(start, duration); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Appointment) schedule(start time.Time, duration time.Duration) error {
	duration = duration.Truncate(time.Minute)
	if duration < time.Minute {
		return fmt.Errorf("%w: appointment lasts less than a minute", ErrInvalid)
	}
	if duration/time.Minute > math.MaxInt32 {
		return fmt.Errorf("%w: appointment lasts %v", ErrInvalid, duration)
	}
	a.start = truncateMinute(start)
	a.duration = duration
	return nil
}

func truncateMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}

func (a *Appointment) ID() record.ObjectID { return a.id }
func (a *Appointment) Label() string { return a.label }
func (a *Appointment) Start() time.Time { return a.start }
func (a *Appointment) Duration() time.Duration { return a.duration }
func (a *Appointment) End() time.Time { return a.start.Add(a.duration) }
func (a *Appointment) Details() string { return a.details }
func (a *Appointment) IsRepeating() bool { return false }
func (a *Appointment) OccursOn(d Date) bool { return record.DateOf(a.start) == d }
func (a *Appointment) SetDetails(details string) { a.details = details }

// SetLabel renames the appointment. The label can't be empty.
func (a *Appointment) SetLabel(label string) error {
	if label == "" {
		return fmt.Errorf("%w: empty label", ErrInvalid)
	}
	a.label = label
	return nil
}

// Reschedule moves the appointment. On error nothing changes.
func (a *Appointment) Reschedule(start time.Time, duration time.Duration) error {
	return a.schedule(start, duration)
}

func (a *Appointment) className() string { return ClassAppointment }

func (a *Appointment) appendFields(r *record.Record) {
	r.AppendString(a.label)
	r.AppendDateTime(a.start)
	r.AppendInt32(int32(a.duration / time.Minute))
	r.AppendString(a.details)
}

// PeriodicAppointment repeats every Period days from its first start until
// the Until day, inclusive.
type PeriodicAppointment struct {
	Appointment
	period int
	until  Date
}

// NewPeriodicAppointment returns an appointment repeating every period
// days. The first occurrence can't fall after until.
func NewPeriodicAppointment(id record.ObjectID, label string, start time.Time, duration time.Duration, details string, period int, until Date) (*PeriodicAppointment, error) {
	base, err := NewAppointment(id, label, start, duration, details)
	if err != nil {
		return nil, err
	}
	if period < 1 || period > math.MaxInt32 {
		return nil, fmt.Errorf("%w: period of %d days", ErrInvalid, period)
	}
	p := &PeriodicAppointment{Appointment: *base, period: period}
	if err := p.SetUntil(until); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PeriodicAppointment) Period() int { return p.period }
func (p *PeriodicAppointment) Until() Date { return p.until }
func (p *PeriodicAppointment) IsRepeating() bool { return true }

// OccursOn reports whether one of the repetitions starts on d.
func (p *PeriodicAppointment) OccursOn(d Date) bool {
	first := record.DateOf(p.start)
	if d.Before(first) || d.After(p.until) {
		return false
	}
	return (d.Days()-first.Days())%int64(p.period) == 0
}

// Occurrences returns the days in [from, to] on which p starts.
func (p *PeriodicAppointment) Occurrences(from, to Date) []Date {
	var days []Date
	first := record.DateOf(p.start)
	if to.After(p.until) {
		to = p.until
	}
	d := first
	if from.After(first) {
		skip := (from.Days() - first.Days() + int64(p.period) - 1) / int64(p.period)
		d = first.AddDays(int(skip) * p.period)
	}
	for ; !d.After(to); d = d.AddDays(p.period) {
		days = append(days, d)
	}
	return days
}

// SetUntil changes the last day a repetition may fall on.
func (p *PeriodicAppointment) SetUntil(until Date) error {
	if !until.Valid() {
		return fmt.Errorf("%w: until %v", ErrInvalid, until)
	}
	if record.DateOf(p.start).After(until) {
		return fmt.Errorf("%w: first occurrence %v is after %v", ErrInvalid, record.DateOf(p.start), until)
	}
	p.until = until
	return nil
}

// Reschedule moves the first occurrence. It must stay on or before Until.
func (p *PeriodicAppointment) Reschedule(start time.Time, duration time.Duration) error {
	if record.DateOf(start).After(p.until) {
		return fmt.Errorf("%w: first occurrence %v is after %v", ErrInvalid, record.DateOf(start), p.until)
	}
	return p.Appointment.Reschedule(start, duration)
}

func (p *PeriodicAppointment) className() string { return ClassPeriodicAppointment }

func (p *PeriodicAppointment) appendFields(r *record.Record) {
	p.Appointment.appendFields(r)
	r.AppendInt32(int32(p.period))
	r.AppendDate(p.until)
}

var (
	_ Event = (*Appointment)(nil)
	_ Event = (*PeriodicAppointment)(nil)
)
