package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"

	"calbot/pkg/logx"
)

func seoul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	return loc
}

func TestToday(t *testing.T) {
	loc := seoul(t)
	// 20:30 UTC is 05:30 next day in Seoul.
	now := time.Date(2024, 3, 9, 20, 30, 0, 0, time.UTC)
	r := Today(now, loc)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, loc), r.From)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, loc), r.To)
}

func TestUpcoming(t *testing.T) {
	loc := seoul(t)
	now := time.Date(2024, 3, 10, 9, 15, 0, 0, loc)
	r := Upcoming(now, loc, 3)
	assert.True(t, r.From.Equal(now))
	assert.Equal(t, time.Date(2024, 3, 13, 9, 15, 0, 0, loc), r.To)
}

func TestNormalizeTimedEvent(t *testing.T) {
	loc := seoul(t)
	e := normalize(&gcal.Event{
		Id:          "1",
		Summary:     " Standup ",
		Location:    "Room 4",
		Description: "daily sync",
		Start:       &gcal.EventDateTime{DateTime: "2024-03-10T00:30:00Z"},
		End:         &gcal.EventDateTime{DateTime: "2024-03-10T01:00:00Z"},
	}, loc)
	assert.Equal(t, "Standup", e.Title)
	assert.Equal(t, "09:30 - 10:00", e.TimeText)
	assert.False(t, e.AllDay)
	assert.Equal(t, "Room 4", e.Location)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, loc), e.Day())
}

func TestNormalizeAllDayWithoutTitle(t *testing.T) {
	loc := seoul(t)
	e := normalize(&gcal.Event{
		Start: &gcal.EventDateTime{Date: "2024-03-11"},
		End:   &gcal.EventDateTime{Date: "2024-03-12"},
	}, loc)
	assert.Equal(t, NoTitle, e.Title)
	assert.True(t, e.AllDay)
	assert.Equal(t, AllDayText, e.TimeText)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, loc), e.Start)
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), Config{CalendarID: "x"}, logx.Nop())
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewClient(context.Background(), Config{APIKey: "k"}, logx.Nop())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClientEventsPaginates(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/events"), r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "k", q.Get("key"))
		assert.Equal(t, "true", q.Get("singleEvents"))
		assert.Equal(t, "startTime", q.Get("orderBy"))
		assert.NotEmpty(t, q.Get("timeMin"))

		page := gcal.Events{}
		if q.Get("pageToken") == "" {
			page.Items = []*gcal.Event{
				{Summary: "A", Start: &gcal.EventDateTime{DateTime: "2024-03-10T00:00:00Z"}, End: &gcal.EventDateTime{DateTime: "2024-03-10T01:00:00Z"}},
				{Summary: "gone", Status: "cancelled", Start: &gcal.EventDateTime{Date: "2024-03-10"}, End: &gcal.EventDateTime{Date: "2024-03-11"}},
			}
			page.NextPageToken = "p2"
		} else {
			page.Items = []*gcal.Event{{Summary: "B", Start: &gcal.EventDateTime{Date: "2024-03-10"}, End: &gcal.EventDateTime{Date: "2024-03-11"}}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Config{
		APIKey:     "k",
		CalendarID: "team@example.com",
		Location:   time.UTC,
		Endpoint:   srv.URL + "/",
	}, logx.Nop())
	require.NoError(t, err)

	events, err := c.Events(context.Background(), Today(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), time.UTC))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "A", events[0].Title)
	assert.Equal(t, "00:00 - 01:00", events[0].TimeText)
	assert.Equal(t, "B", events[1].Title)
	assert.True(t, events[1].AllDay)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientEventsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":404,"message":"Not Found"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Config{APIKey: "k", CalendarID: "missing", Endpoint: srv.URL + "/"}, logx.Nop())
	require.NoError(t, err)
	_, err = c.Events(context.Background(), Range{From: time.Now(), To: time.Now().Add(time.Hour)})
	assert.ErrorContains(t, err, "list events")
}
