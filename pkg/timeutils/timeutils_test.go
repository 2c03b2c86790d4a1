package timeutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-01-07 is a Wednesday.
var wednesdayNoon = time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC)

func TestNextOccurrence_SameDayLaterSlot(t *testing.T) {
	next, err := NextOccurrence("3", "15:30", wednesdayNoon, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 7, 15, 30, 0, 0, time.UTC), next)
}

func TestNextOccurrence_SkipsToFollowingWeek(t *testing.T) {
	next, err := NextOccurrence("3", "09:00", wednesdayNoon, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC), next)
}

func TestNextOccurrence_StrictlyAfter(t *testing.T) {
	next, err := NextOccurrence("3", "12:00", wednesdayNoon, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, wednesdayNoon.AddDate(0, 0, 7), next)
}

func TestPreviousOccurrence(t *testing.T) {
	prev, err := PreviousOccurrence("1,3", "12:00", wednesdayNoon, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, wednesdayNoon, prev, "a slot exactly at ref counts")

	prev, err = PreviousOccurrence("1", "08:00", wednesdayNoon, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC), prev)

	prev, err = PreviousOccurrence("3", "13:00", wednesdayNoon, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 31, 13, 0, 0, 0, time.UTC), prev)
}

func TestOccurrence_UsesLocalWallClock(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skip("tzdata not available")
	}
	next, err := NextOccurrence("3", "09:00", wednesdayNoon, chicago)
	require.NoError(t, err)
	// 12:00 UTC is 06:00 in Chicago, so today's 09:00 local slot is still ahead.
	assert.Equal(t, time.Date(2026, 1, 7, 15, 0, 0, 0, time.UTC), next.UTC())
}

func TestParseErrors(t *testing.T) {
	_, err := ParseWeekdays("")
	assert.Error(t, err)
	_, err = ParseWeekdays("1,9")
	assert.Error(t, err)
	_, _, err = ParseClock("9am")
	assert.Error(t, err)
	_, _, err = ParseClock("24:00")
	assert.Error(t, err)
	assert.Equal(t, time.UTC, LoadLocation("Mars/Olympus"))
}
