package scheduler

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"calbot/pkg/logx"
)

func logxTest(t *testing.T) logx.Logger {
	t.Helper()
	return logx.New(zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.WarnLevel))
}

func TestParseHHMM(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		h, m    int
		wantErr bool
	}{
		{in: "08:00", h: 8, m: 0},
		{in: "7:05", h: 7, m: 5},
		{in: " 23:59 ", h: 23, m: 59},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "1200", wantErr: true},
		{in: "aa:bb", wantErr: true},
	}
	for _, tt := range tests {
		h, m, err := ParseHHMM(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidTime, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.h, h, tt.in)
		assert.Equal(t, tt.m, m, tt.in)
	}
}

func TestFormatHHMM(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "00:00", FormatHHMM(0, 0))
	assert.Equal(t, "08:05", FormatHHMM(8, 5))
	assert.Equal(t, "23:59", FormatHHMM(23, 59))
}

func TestLoadLocation(t *testing.T) {
	t.Parallel()
	loc, err := LoadLocation("")
	assert.NoError(t, err)
	assert.Equal(t, "Local", loc.String())
	_, err = LoadLocation("Mars/Olympus")
	assert.Error(t, err)
}
