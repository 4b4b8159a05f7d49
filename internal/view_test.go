package internal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{61, "00:01:01"},
		{3600, "01:00:00"},
		{36000 + 62, "10:01:02"},
		{100 * 3600, "100:00:00"},
		{-5, "00:00:00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatClock(tt.seconds), "seconds=%d", tt.seconds)
	}
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "1 hour", FormatHours(1))
	assert.Equal(t, "2 hours", FormatHours(2))
	assert.Equal(t, "0.5 hours", FormatHours(0.5))
	assert.Equal(t, "1.5 hours", FormatHours(1.5))
}

func TestProgressBarClamps(t *testing.T) {
	tests := []struct {
		name       string
		percentage float64
		filled     int
	}{
		{"negative", -10, 0},
		{"empty", 0, 0},
		{"half", 50, 20},
		{"full", 100, 40},
		{"overrun", 250, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := progressBar(tt.percentage, progressBarWidth)
			assert.Equal(t, tt.filled, strings.Count(bar, "█"))
			assert.Equal(t, progressBarWidth-tt.filled, strings.Count(bar, "░"))
		})
	}
}
