package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValidTime reports whether hour:minute is a wall-clock time of day.
func ValidTime(hour, minute int) bool {
	return hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59
}

// FormatHHMM renders a zero-padded time of day.
func FormatHHMM(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// ParseHHMM parses "H:MM" or "HH:MM".
func ParseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q, expected HH:MM", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: hour in %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: minute in %q", ErrInvalidTime, s)
	}
	if !ValidTime(h, m) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return h, m, nil
}

// LoadLocation resolves an IANA zone; empty means time.Local.
func LoadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

func dailySpec(hour, minute int) string {
	return fmt.Sprintf("%d %d * * *", minute, hour)
}
