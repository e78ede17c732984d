package calendar

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"calbot/pkg/logx"
)

type Config struct {
	APIKey     string
	CalendarID string
	Location   *time.Location
	// Timeout bounds one Events call; zero means 15s.
	Timeout time.Duration
	// Endpoint overrides the API base URL.
	Endpoint string
}

// Client reads a public calendar with an API key. Concurrent calls for the
// same range share one request.
type Client struct {
	svc        *gcal.Service
	calendarID string
	timeout    time.Duration
	loc        atomic.Pointer[time.Location]
	group      singleflight.Group
	log        logx.Logger
}

var _ Provider = (*Client)(nil)

func NewClient(ctx context.Context, cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.CalendarID) == "" {
		return nil, ErrNotConfigured
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	c := &Client{svc: svc, calendarID: cfg.CalendarID, timeout: cfg.Timeout, log: log}
	if c.timeout <= 0 {
		c.timeout = 15 * time.Second
	}
	c.SetLocation(cfg.Location)
	return c, nil
}

func (c *Client) Location() *time.Location { return c.loc.Load() }

// SetLocation changes the zone events are rendered in. nil means time.Local.
func (c *Client) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	c.loc.Store(loc)
}

func (c *Client) Events(ctx context.Context, r Range) ([]Event, error) {
	loc := c.Location()
	key := fmt.Sprintf("%d|%d|%s", r.From.Unix(), r.To.Unix(), loc)
	v, err, shared := c.group.Do(key, func() (any, error) {
		return c.fetch(ctx, r, loc)
	})
	if err != nil {
		return nil, err
	}
	events := v.([]Event)
	if shared {
		events = append([]Event(nil), events...)
	}
	return events, nil
}

func (c *Client) fetch(ctx context.Context, r Range, loc *time.Location) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var out []Event
	call := c.svc.Events.List(c.calendarID).
		TimeMin(r.From.Format(time.RFC3339)).
		TimeMax(r.To.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250)
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, it := range page.Items {
			if it == nil || it.Status == "cancelled" {
				continue
			}
			out = append(out, normalize(it, loc))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	c.log.Debug("calendar events fetched",
		logx.Int("count", len(out)),
		logx.Time("from", r.From),
		logx.Time("to", r.To),
		logx.Duration("took", time.Since(start)),
	)
	return out, nil
}
