// Package agenda turns calendar events into chat messages. Its methods are
// the payloads the scheduler fires and the calendar commands call.
package agenda

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"calbot/internal/calendar"
	"calbot/internal/config"
	"calbot/internal/scheduler"
	"calbot/internal/transport"
	"calbot/pkg/chatui"
	"calbot/pkg/logx"
)

const (
	TodayTitle      = "Today's Schedule"
	descriptionMax  = 100
	continuedSuffix = " (continued)"
)

// hiddenMarkers prefix titles of events left out of on-demand listings.
var hiddenMarkers = []string{"🟢", "🔵"}

type Notifier struct {
	provider calendar.Provider
	log      logx.Logger
	now      func() time.Time
}

func New(provider calendar.Provider, log logx.Logger) *Notifier {
	return &Notifier{provider: provider, log: log, now: time.Now}
}

// Daily sends today's events to ch. A nil channel is logged and ignored.
func (n *Notifier) Daily(ctx context.Context, ch transport.Channel) error {
	if ch == nil {
		n.log.Warn("no channel specified for daily schedule notification")
		return nil
	}
	events, err := n.provider.Events(ctx, calendar.Today(n.now(), n.provider.Location()))
	if err != nil {
		return n.reportError(ctx, ch, "Failed to fetch today's schedule", err)
	}
	if len(events) == 0 {
		return n.send(ctx, ch, chatui.ColorGreen, TodayTitle, nil, "No events scheduled for today! 🎉")
	}
	return n.send(ctx, ch, chatui.ColorBlue, TodayTitle, renderEvents(events, false), "")
}

// Schedule sends an on-demand listing: today when days is 0, otherwise the
// next days days grouped by date. Events with hidden markers are skipped.
func (n *Notifier) Schedule(ctx context.Context, ch transport.Channel, days int) error {
	if ch == nil {
		return nil
	}
	loc := n.provider.Location()
	title, r := TodayTitle, calendar.Today(n.now(), loc)
	if days > 0 {
		title = fmt.Sprintf("Upcoming Events (Next %d days)", days)
		r = calendar.Upcoming(n.now(), loc, days)
	}
	events, err := n.provider.Events(ctx, r)
	if err != nil {
		return n.reportError(ctx, ch, "Error fetching calendar events", err)
	}
	events = visible(events)
	if len(events) == 0 {
		return n.send(ctx, ch, chatui.ColorGreen, title, nil, "No events found! 🎉")
	}
	return n.send(ctx, ch, chatui.ColorBlue, title, renderEvents(events, days > 0), "")
}

// Payload returns the scheduler payload for a task kind.
func (n *Notifier) Payload(kind string, days int) scheduler.Payload {
	if kind == config.TaskKindUpcoming {
		if days <= 0 {
			days = 7
		}
		return func(ctx context.Context, ch transport.Channel) error {
			if ch == nil {
				n.log.Warn("no channel specified for upcoming schedule notification")
				return nil
			}
			return n.Schedule(ctx, ch, days)
		}
	}
	return n.Daily
}

func visible(events []calendar.Event) []calendar.Event {
	out := events[:0:0]
	for _, e := range events {
		if !hidden(e.Title) {
			out = append(out, e)
		}
	}
	return out
}

func hidden(title string) bool {
	for _, m := range hiddenMarkers {
		if strings.HasPrefix(title, m) {
			return true
		}
	}
	return false
}

// renderEvents returns the HTML body, one line per entry, with a blank line
// after each event.
func renderEvents(events []calendar.Event, groupByDay bool) []string {
	var (
		lines []string
		day   time.Time
	)
	for _, e := range events {
		if groupByDay && !e.Day().Equal(day) {
			day = e.Day()
			lines = append(lines, "", chatui.B(day.Format("2006-01-02 (Monday)")).String())
		}
		lines = append(lines, "🕐 "+chatui.B(e.TimeText).String()+" - "+chatui.Esc(e.Title).String())
		if e.Location != "" {
			lines = append(lines, "📍 "+chatui.Esc(e.Location).String())
		}
		if e.Description != "" {
			lines = append(lines, "📝 "+chatui.Esc(chatui.Truncate(e.Description, descriptionMax, "...")).String())
		}
		lines = append(lines, "")
	}
	return lines
}

// send renders a card per body chunk: the first carries title, the rest
// "<title> (continued)". With no body, text is the single line shown.
func (n *Notifier) send(ctx context.Context, ch transport.Channel, color chatui.Color, title string, body []string, text string) error {
	if len(body) == 0 {
		_, err := chatui.New().Color(color).Title("📅", title).Line(text).Build().Send(ctx, ch)
		return err
	}
	chunks := chatui.SplitLines(strings.Join(body, "\n"), chatui.MaxBody)
	for i, chunk := range chunks {
		t := title
		if i > 0 {
			t += continuedSuffix
		}
		if _, err := chatui.New().Color(color).Title("📅", t).RawLine(chatui.Raw(chunk)).Build().Send(ctx, ch); err != nil {
			return fmt.Errorf("send %s (part %d/%d): %w", title, i+1, len(chunks), err)
		}
	}
	return nil
}

func (n *Notifier) reportError(ctx context.Context, ch transport.Channel, what string, cause error) error {
	n.log.Error(strings.ToLower(what), logx.Err(cause))
	_, err := chatui.New().Color(chatui.ColorRed).
		Title("❌", "Calendar Error").
		Line(what + ": " + cause.Error()).
		Build().Send(ctx, ch)
	return errors.Join(fmt.Errorf("%s: %w", strings.ToLower(what), cause), err)
}
