// Package calendar reads events from a public Google Calendar.
package calendar

import (
	"context"
	"errors"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
)

var ErrNotConfigured = errors.New("calendar: api key or calendar id missing")

const (
	NoTitle    = "No title"
	AllDayText = "All day"
)

// Event is a calendar entry normalized to the bot's timezone.
type Event struct {
	ID          string
	Title       string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
	// TimeText is "HH:MM - HH:MM" or "All day".
	TimeText string
}

// Day is the local calendar date of the event start.
func (e Event) Day() time.Time {
	y, m, d := e.Start.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.Start.Location())
}

// Range is a half-open interval [From, To).
type Range struct {
	From time.Time
	To   time.Time
}

// Today covers local midnight to the next midnight in loc.
func Today(now time.Time, loc *time.Location) Range {
	now = now.In(loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return Range{From: start, To: start.AddDate(0, 0, 1)}
}

// Upcoming covers now to now plus days.
func Upcoming(now time.Time, loc *time.Location, days int) Range {
	now = now.In(loc)
	return Range{From: now, To: now.AddDate(0, 0, days)}
}

// Provider lists events in a range ordered by start time.
type Provider interface {
	Events(ctx context.Context, r Range) ([]Event, error)
	Location() *time.Location
}

func normalize(e *gcal.Event, loc *time.Location) Event {
	out := Event{
		ID:          e.Id,
		Title:       strings.TrimSpace(e.Summary),
		Location:    strings.TrimSpace(e.Location),
		Description: strings.TrimSpace(e.Description),
	}
	if out.Title == "" {
		out.Title = NoTitle
	}

	start, allDay := parseEventTime(e.Start, loc)
	end, _ := parseEventTime(e.End, loc)
	out.Start, out.End, out.AllDay = start, end, allDay
	if allDay {
		out.TimeText = AllDayText
	} else {
		out.TimeText = start.Format("15:04") + " - " + end.Format("15:04")
	}
	return out
}

// parseEventTime reads a timed (dateTime) or all-day (date) boundary.
// The bool is true for all-day values.
func parseEventTime(t *gcal.EventDateTime, loc *time.Location) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	if t.DateTime != "" {
		if ts, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
			return ts.In(loc), false
		}
	}
	if t.Date != "" {
		if ts, err := time.ParseInLocation(time.DateOnly, t.Date, loc); err == nil {
			return ts, true
		}
	}
	return time.Time{}, t.DateTime == ""
}
