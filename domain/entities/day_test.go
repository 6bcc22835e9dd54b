package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayFromUnix(t *testing.T) {
	tests := []struct {
		name     string
		ts       int64
		expected Day
	}{
		{name: "midnight", ts: 1704067200, expected: 20240101},
		{name: "last second of day", ts: 1704153599, expected: 20240101},
		{name: "next day", ts: 1704153600, expected: 20240102},
		{name: "leap day", ts: time.Date(2024, 2, 29, 13, 0, 0, 0, time.UTC).Unix(), expected: 20240229},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DayFromUnix(tt.ts))
		})
	}
}

func TestDayFromTime_UsesUTC(t *testing.T) {
	tz := time.FixedZone("UTC+10", 10*60*60)
	// 2024-01-02 05:00 local is still 2024-01-01 in UTC
	local := time.Date(2024, 1, 2, 5, 0, 0, 0, tz)
	assert.Equal(t, Day(20240101), DayFromTime(local))
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("20240229")
	require.NoError(t, err)
	assert.Equal(t, Day(20240229), d)

	for _, bad := range []string{"20230229", "20241301", "20240100", "2024011", "2024-01-01", "abcdefgh", "19691231"} {
		_, err := ParseDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestDay_NextPrev(t *testing.T) {
	assert.Equal(t, Day(20240301), Day(20240229).Next())
	assert.Equal(t, Day(20250101), Day(20241231).Next())
	assert.Equal(t, Day(20240229), Day(20240301).Prev())
	assert.Equal(t, "2024-03-01", Day(20240301).ISO())
	assert.Equal(t, "20240301", Day(20240301).String())
}

func TestDayRange(t *testing.T) {
	days := DayRange(20240227, 20240302)
	assert.Equal(t, []Day{20240227, 20240228, 20240229, 20240301, 20240302}, days)
	assert.Len(t, DayRange(20240101, 20240101), 1)
	assert.Nil(t, DayRange(20240102, 20240101))
	assert.Equal(t, 365, DaysBetween(20230101, 20240101))
	assert.Equal(t, -1, DaysBetween(20240102, 20240101))
}
