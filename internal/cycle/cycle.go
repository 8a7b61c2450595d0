// Package cycle computes the weekly window that partitions orders, deliveries and reports,
// and the ordering window inside it.
package cycle

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }

func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// Week is the half-open interval [Start, End). Both bounds are stored in UTC.
type Week struct {
	Start time.Time
	End   time.Time
}

func (w Week) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Week) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

type Settings struct {
	Location *time.Location

	WeekStartWeekday time.Weekday
	WeekStartHour    int

	OrderStartWeekday time.Weekday
	OrderStartHour    int
	OrderLength       time.Duration

	// AlwaysOpen keeps the ordering window open (development mode).
	AlwaysOpen bool
}

// DefaultSettings: week from Saturday 01:00, ordering from Saturday 12:00 for 56 hours, Europe/Warsaw.
func DefaultSettings() Settings {
	loc, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		loc = time.UTC
	}
	return Settings{
		Location:          loc,
		WeekStartWeekday:  time.Saturday,
		WeekStartHour:     1,
		OrderStartWeekday: time.Saturday,
		OrderStartHour:    12,
		OrderLength:       56 * time.Hour,
	}
}

type Cycle struct {
	settings Settings
	clock    Clock
}

func New(settings Settings, clock Clock) *Cycle {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Cycle{settings: settings, clock: clock}
}

// Now returns the current time in UTC, the form every timestamp is persisted in.
func (c *Cycle) Now() time.Time {
	return c.clock.Now().UTC()
}

func (c *Cycle) Location() *time.Location {
	return c.settings.Location
}

// WeekOf returns the week containing t.
func (c *Cycle) WeekOf(t time.Time) Week {
	start := PreviousWeekday(t, c.settings.WeekStartWeekday, c.settings.WeekStartHour, c.settings.Location)
	return weekFrom(start)
}

func (c *Cycle) CurrentWeek() Week {
	return c.WeekOf(c.clock.Now())
}

// WeekStarting returns the 7-day week beginning at start.
func WeekStarting(start time.Time) Week {
	return weekFrom(start)
}

func weekFrom(start time.Time) Week {
	// 7 calendar days, so the end stays on the anchor hour across DST changes
	end := start.AddDate(0, 0, 7)
	return Week{Start: start.UTC(), End: end.UTC()}
}

// OrderWindow returns the most recent ordering window [O_start, O_end).
func (c *Cycle) OrderWindow() Week {
	start := PreviousWeekday(c.clock.Now(), c.settings.OrderStartWeekday, c.settings.OrderStartHour, c.settings.Location)
	return Week{Start: start.UTC(), End: start.Add(c.settings.OrderLength).UTC()}
}

func (c *Cycle) OrderingOpen() bool {
	if c.settings.AlwaysOpen {
		return true
	}
	return c.OrderWindow().Contains(c.Now())
}

// PreviousWeekday returns the most recent moment not after now that falls on weekday at hour:00 in loc.
func PreviousWeekday(now time.Time, weekday time.Weekday, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	daysBack := (int(local.Weekday()) - int(weekday) + 7) % 7
	anchor := time.Date(local.Year(), local.Month(), local.Day()-daysBack, hour, 0, 0, 0, loc)
	if anchor.After(local) {
		anchor = anchor.AddDate(0, 0, -7)
	}
	return anchor
}

// NextWeekday returns the first moment after now that falls on weekday at hour:00 in loc.
func NextWeekday(now time.Time, weekday time.Weekday, hour int, loc *time.Location) time.Time {
	prev := PreviousWeekday(now, weekday, hour, loc)
	return prev.AddDate(0, 0, 7)
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// legacy numbering: days back from today is (n + python_weekday - 1) mod 7
var legacyWeekdays = map[int]time.Weekday{
	1: time.Monday,
	7: time.Tuesday,
	6: time.Wednesday,
	5: time.Thursday,
	4: time.Friday,
	3: time.Saturday,
	2: time.Sunday,
}

// ParseWeekday accepts an English weekday name or the legacy numeric code.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if wd, ok := weekdayNames[s]; ok {
		return wd, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if wd, ok := legacyWeekdays[n]; ok {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// WeekStart returns the start of the week containing t.
func (c *Cycle) WeekStart(t time.Time) time.Time {
	return c.WeekOf(t).Start
}
