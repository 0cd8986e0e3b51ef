// Package calendar renders the inline month picker used to choose a
// publish date and validates the time typed after it.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	Prefix     = "cal:"
	dayLayout  = "2006-01-02"
	monthShort = "2006-01"
	ignoreData = Prefix + "x"
)

var (
	ErrBadTimeFormat = errors.New("time must be HH:MM")
	ErrNotFuture     = errors.New("time must be in the future")
)

// Action is what a calendar button does.
type Action int

const (
	ActionIgnore Action = iota
	ActionDay
	ActionPrev
	ActionNext
)

// Callback is a decoded calendar button payload.
type Callback struct {
	Action Action
	// Day is set for ActionDay, Month (first of month) for navigation.
	Day   time.Time
	Month time.Time
}

// Target returns the month to render after a navigation callback.
func (c Callback) Target() time.Time {
	switch c.Action {
	case ActionPrev:
		return c.Month.AddDate(0, -1, 0)
	case ActionNext:
		return c.Month.AddDate(0, 1, 0)
	}
	return c.Month
}

// Cell is one inline button of the grid.
type Cell struct {
	Text string
	Data string
}

// IsCalendar reports whether data is a calendar payload.
func IsCalendar(data string) bool {
	return strings.HasPrefix(data, Prefix)
}

// Parse decodes a calendar payload. Dates are returned in loc.
func Parse(data string, loc *time.Location) (Callback, error) {
	rest, ok := strings.CutPrefix(data, Prefix)
	if !ok {
		return Callback{}, fmt.Errorf("not a calendar payload: %q", data)
	}
	kind, value, _ := strings.Cut(rest, ":")
	switch kind {
	case "x":
		return Callback{Action: ActionIgnore}, nil
	case "d":
		day, err := time.ParseInLocation(dayLayout, value, loc)
		if err != nil {
			return Callback{}, fmt.Errorf("parse day: %w", err)
		}
		return Callback{Action: ActionDay, Day: day}, nil
	case "p", "n":
		month, err := time.ParseInLocation(monthShort, value, loc)
		if err != nil {
			return Callback{}, fmt.Errorf("parse month: %w", err)
		}
		action := ActionPrev
		if kind == "n" {
			action = ActionNext
		}
		return Callback{Action: action, Month: month}, nil
	}
	return Callback{}, fmt.Errorf("unknown calendar payload: %q", data)
}

// Grid builds the month picker for year/month. Days before today (in now's
// location) are inert, and navigation never goes before the current month.
func Grid(year int, month time.Month, now time.Time) [][]Cell {
	loc := now.Location()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	rows := [][]Cell{
		{{Text: first.Format("January 2006"), Data: ignoreData}},
	}

	header := make([]Cell, 0, 7)
	for _, wd := range []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"} {
		header = append(header, Cell{Text: wd, Data: ignoreData})
	}
	rows = append(rows, header)

	// Monday-first column of the 1st.
	offset := (int(first.Weekday()) + 6) % 7
	week := make([]Cell, 0, 7)
	for range offset {
		week = append(week, Cell{Text: " ", Data: ignoreData})
	}
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		cell := Cell{Text: strconv.Itoa(d.Day()), Data: ignoreData}
		if !d.Before(today) {
			cell.Data = Prefix + "d:" + d.Format(dayLayout)
		}
		week = append(week, cell)
		if len(week) == 7 {
			rows = append(rows, week)
			week = make([]Cell, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, Cell{Text: " ", Data: ignoreData})
		}
		rows = append(rows, week)
	}

	prev := Cell{Text: " ", Data: ignoreData}
	if first.After(thisMonth) {
		prev = Cell{Text: "<", Data: Prefix + "p:" + first.Format(monthShort)}
	}
	rows = append(rows, []Cell{
		prev,
		{Text: " ", Data: ignoreData},
		{Text: ">", Data: Prefix + "n:" + first.Format(monthShort)},
	})
	return rows
}

// ParseClock parses "HH:MM" (24h, single-digit hour allowed).
func ParseClock(input string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(input), ":")
	if !ok || len(m) != 2 || len(h) == 0 || len(h) > 2 || !digits(h) || !digits(m) {
		return 0, 0, ErrBadTimeFormat
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, ErrBadTimeFormat
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, ErrBadTimeFormat
	}
	return hour, minute, nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Combine joins a picked day with a typed HH:MM in loc and requires the
// result to be strictly after now.
func Combine(day time.Time, clock string, loc *time.Location, now time.Time) (time.Time, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	at := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
	if err := ValidateFuture(at, now); err != nil {
		return time.Time{}, err
	}
	return at, nil
}

// ValidateFuture returns ErrNotFuture unless at is strictly after now.
func ValidateFuture(at, now time.Time) error {
	if !at.After(now) {
		return ErrNotFuture
	}
	return nil
}
