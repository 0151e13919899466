package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateDuration(t *testing.T) {
	now := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)

	result, err := CalculateDuration("2020-01-01", "2023-04-05", now)
	require.NoError(t, err)
	assert.Equal(t, "3 years and 3 months", result)
}

func TestCalculateDurationPresent(t *testing.T) {
	now := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)

	result, err := CalculateDuration("2024-08-30", "present", now)
	require.NoError(t, err)
	assert.Equal(t, "2 years and 0 months", result)
}

func TestCalculateDurationEndBeforeStart(t *testing.T) {
	now := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)

	result, err := CalculateDuration("2024-01-01", "2020-01-01", now)
	require.NoError(t, err)
	assert.Equal(t, "0 years and 0 months", result)
}

func TestCalculateDurationFormats(t *testing.T) {
	now := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		start string
		end   string
	}{
		{"2020-01", "2021-01"},
		{"2020", "2021"},
		{"15.01.2020", "15.01.2021"},
		{"01.2020", "01.2021"},
		{"sometime in 2020", "early 2021"},
	}
	for _, tc := range cases {
		result, err := CalculateDuration(tc.start, tc.end, now)
		require.NoError(t, err, "start=%q end=%q", tc.start, tc.end)
		assert.Equal(t, "1 years and 0 months", result)
	}
}

func TestCalculateDurationUnparseable(t *testing.T) {
	now := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)

	_, err := CalculateDuration("no date here", "2021-01-01", now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no date here")
}
