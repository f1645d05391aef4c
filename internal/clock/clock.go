// Package clock provides the time source used by the ticketing workflows.
//
// Every "now" comparison and every stored timestamp string is expressed in a
// fixed UTC+8 offset. Stored values are wall-clock strings without an offset
// so they stay comparable with rows written by older clients.
package clock

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Zone is the fixed reference offset for the whole system.
var Zone = time.FixedZone("UTC+8", 8*60*60)

const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04"
	TimestampLayout = "2006-01-02T15:04:05.000"
	// MinuteLayout is used when event moments are compared as strings in SQL.
	MinuteLayout = "2006-01-02 15:04"
)

// EndOfDay is the event time assumed when an event has no time of day.
const EndOfDay = "23:59"

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

type system struct{}

func (system) Now() time.Time { return time.Now().In(Zone) }

// New returns the wall clock pinned to Zone.
func New() Clock { return system{} }

// Manual is a settable clock for tests and replays.
type Manual struct {
	mu sync.Mutex
	t  time.Time
}

// Fixed returns a Manual clock frozen at t.
func Fixed(t time.Time) *Manual { return &Manual{t: t.In(Zone)} }

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.t = t.In(Zone)
	m.mu.Unlock()
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.t = m.t.Add(d)
	m.mu.Unlock()
}

// Timestamp formats the clock's current instant for storage.
func Timestamp(c Clock) string { return c.Now().In(Zone).Format(TimestampLayout) }

// Minute formats t at minute precision in Zone.
func Minute(t time.Time) string { return t.In(Zone).Format(MinuteLayout) }

// EventMoment resolves an event's date and optional time of day into an
// instant in Zone. A blank time means 23:59 of that date. Times given with
// seconds ("15:04:05") are accepted.
func EventMoment(date, clockTime string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clockTime = strings.TrimSpace(clockTime)
	if date == "" {
		return time.Time{}, fmt.Errorf("event date is empty")
	}
	if clockTime == "" {
		clockTime = EndOfDay
	}
	layout := DateLayout + " " + TimeLayout
	if len(clockTime) > len(TimeLayout) {
		layout += ":05"
	}
	t, err := time.ParseInLocation(layout, date+" "+clockTime, Zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse event moment %q %q: %w", date, clockTime, err)
	}
	return t, nil
}

// NormalizeTime canonicalises an event time to HH:MM. Blank input stays blank.
func NormalizeTime(clockTime string) (string, error) {
	clockTime = strings.TrimSpace(clockTime)
	if clockTime == "" {
		return "", nil
	}
	layout := TimeLayout
	if len(clockTime) > len(TimeLayout) {
		layout += ":05"
	}
	t, err := time.Parse(layout, clockTime)
	if err != nil {
		return "", fmt.Errorf("invalid event time %q", clockTime)
	}
	return t.Format(TimeLayout), nil
}

// Elapsed reports whether the event moment is strictly before now.
func Elapsed(c Clock, date, clockTime string) (bool, error) {
	m, err := EventMoment(date, clockTime)
	if err != nil {
		return false, err
	}
	return m.Before(c.Now()), nil
}
