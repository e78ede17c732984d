package agenda

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calbot/internal/calendar"
	"calbot/internal/config"
	"calbot/internal/transport"
	"calbot/pkg/logx"
)

type fakeProvider struct {
	events []calendar.Event
	err    error
	ranges []calendar.Range
}

func (p *fakeProvider) Location() *time.Location { return time.UTC }
func (p *fakeProvider) Events(_ context.Context, r calendar.Range) ([]calendar.Event, error) {
	p.ranges = append(p.ranges, r)
	return p.events, p.err
}

type fakeChannel struct {
	texts []string
	err   error
}

func (c *fakeChannel) Target() transport.ChatTarget { return transport.ChatTarget{ChatID: -100} }
func (c *fakeChannel) Title() string                { return "team" }
func (c *fakeChannel) Send(_ context.Context, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	if c.err != nil {
		return transport.MessageRef{}, c.err
	}
	c.texts = append(c.texts, text)
	return transport.MessageRef{ChatID: -100, MessageID: len(c.texts)}, nil
}

var fixedNow = time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC)

func newNotifier(p calendar.Provider) *Notifier {
	n := New(p, logx.Nop())
	n.now = func() time.Time { return fixedNow }
	return n
}

func event(title string, start time.Time) calendar.Event {
	return calendar.Event{Title: title, Start: start, End: start.Add(time.Hour), TimeText: start.Format("15:04") + " - " + start.Add(time.Hour).Format("15:04")}
}

func TestDailyNilChannel(t *testing.T) {
	p := &fakeProvider{}
	assert.NoError(t, newNotifier(p).Daily(context.Background(), nil))
	assert.Empty(t, p.ranges)
}

func TestDailyEmpty(t *testing.T) {
	ch := &fakeChannel{}
	p := &fakeProvider{}
	require.NoError(t, newNotifier(p).Daily(context.Background(), ch))
	require.Len(t, ch.texts, 1)
	assert.Contains(t, ch.texts[0], "Today&#39;s Schedule")
	assert.Contains(t, ch.texts[0], "No events scheduled for today! 🎉")
	require.Len(t, p.ranges, 1)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), p.ranges[0].From)
}

func TestDailyListsEverything(t *testing.T) {
	ch := &fakeChannel{}
	e := event("🟢 Focus <deep>", fixedNow)
	e.Location = "HQ"
	e.Description = strings.Repeat("d", 150)
	p := &fakeProvider{events: []calendar.Event{e}}
	require.NoError(t, newNotifier(p).Daily(context.Background(), ch))

	require.Len(t, ch.texts, 1)
	text := ch.texts[0]
	assert.Contains(t, text, "🕐 <b>07:00 - 08:00</b> - 🟢 Focus &lt;deep&gt;")
	assert.Contains(t, text, "📍 HQ")
	assert.Contains(t, text, "📝 "+strings.Repeat("d", 100)+"...")
	assert.NotContains(t, text, strings.Repeat("d", 101))
}

func TestScheduleGroupsAndSkipsMarkers(t *testing.T) {
	ch := &fakeChannel{}
	p := &fakeProvider{events: []calendar.Event{
		event("Standup", fixedNow.Add(2*time.Hour)),
		event("🔵 Personal", fixedNow.Add(3*time.Hour)),
		event("Retro", fixedNow.Add(26*time.Hour)),
		event("Review", fixedNow.Add(27*time.Hour)),
	}}
	require.NoError(t, newNotifier(p).Schedule(context.Background(), ch, 3))

	require.Len(t, ch.texts, 1)
	text := ch.texts[0]
	assert.Contains(t, text, "Upcoming Events (Next 3 days)")
	assert.Contains(t, text, "<b>2024-03-10 (Sunday)</b>")
	assert.Contains(t, text, "<b>2024-03-11 (Monday)</b>")
	assert.Equal(t, 1, strings.Count(text, "2024-03-11"))
	assert.NotContains(t, text, "Personal")
	assert.Less(t, strings.Index(text, "Standup"), strings.Index(text, "Retro"))
	assert.Equal(t, fixedNow.AddDate(0, 0, 3), p.ranges[0].To)
}

func TestScheduleTodayHasNoHeaders(t *testing.T) {
	ch := &fakeChannel{}
	p := &fakeProvider{events: []calendar.Event{event("Standup", fixedNow)}}
	require.NoError(t, newNotifier(p).Schedule(context.Background(), ch, 0))
	assert.Contains(t, ch.texts[0], "Today&#39;s Schedule")
	assert.NotContains(t, ch.texts[0], "(Sunday)")
}

func TestScheduleOnlyHiddenEvents(t *testing.T) {
	ch := &fakeChannel{}
	p := &fakeProvider{events: []calendar.Event{event("🟢 Gym", fixedNow)}}
	require.NoError(t, newNotifier(p).Schedule(context.Background(), ch, 1))
	assert.Contains(t, ch.texts[0], "No events found! 🎉")
}

func TestLongListingIsSplit(t *testing.T) {
	ch := &fakeChannel{}
	var events []calendar.Event
	for i := 0; i < 120; i++ {
		e := event(fmt.Sprintf("Meeting number %03d with a fairly long title", i), fixedNow.Add(time.Duration(i)*time.Minute))
		e.Description = strings.Repeat("x", 60)
		events = append(events, e)
	}
	require.NoError(t, newNotifier(&fakeProvider{events: events}).Daily(context.Background(), ch))

	require.Greater(t, len(ch.texts), 1)
	assert.NotContains(t, ch.texts[0], "(continued)")
	for _, txt := range ch.texts[1:] {
		assert.Contains(t, txt, "Today&#39;s Schedule (continued)")
	}
	joined := strings.Join(ch.texts, "\n")
	assert.Contains(t, joined, "number 000")
	assert.Contains(t, joined, "number 119")
}

func TestProviderErrorIsReported(t *testing.T) {
	ch := &fakeChannel{}
	boom := errors.New("quota exceeded")
	err := newNotifier(&fakeProvider{err: boom}).Daily(context.Background(), ch)
	require.ErrorIs(t, err, boom)
	require.Len(t, ch.texts, 1)
	assert.Contains(t, ch.texts[0], "Calendar Error")
	assert.Contains(t, ch.texts[0], "Failed to fetch today&#39;s schedule: quota exceeded")

	ch = &fakeChannel{}
	err = newNotifier(&fakeProvider{err: boom}).Schedule(context.Background(), ch, 7)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, ch.texts[0], "Error fetching calendar events: quota exceeded")
}

func TestSendFailureIsReturned(t *testing.T) {
	ch := &fakeChannel{err: errors.New("forbidden")}
	err := newNotifier(&fakeProvider{events: []calendar.Event{event("x", fixedNow)}}).Daily(context.Background(), ch)
	assert.ErrorContains(t, err, "forbidden")
}

func TestPayloadKinds(t *testing.T) {
	p := &fakeProvider{}
	n := newNotifier(p)
	ch := &fakeChannel{}

	require.NoError(t, n.Payload(config.TaskKindUpcoming, 0)(context.Background(), ch))
	assert.Contains(t, ch.texts[0], "Next 7 days")

	require.NoError(t, n.Payload(config.TaskKindToday, 0)(context.Background(), ch))
	assert.Contains(t, ch.texts[1], "Today&#39;s Schedule")

	assert.NoError(t, n.Payload(config.TaskKindUpcoming, 2)(context.Background(), nil))
}
