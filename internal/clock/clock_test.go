package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMoment_DefaultsToEndOfDay(t *testing.T) {
	m, err := EventMoment("2025-03-10", "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 23, 59, 0, 0, Zone), m)
}

func TestEventMoment_AcceptsSeconds(t *testing.T) {
	m, err := EventMoment("2025-03-10", "19:30:15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 19, 30, 15, 0, Zone), m)
}

func TestEventMoment_Invalid(t *testing.T) {
	_, err := EventMoment("", "10:00")
	assert.Error(t, err)
	_, err = EventMoment("2025-13-01", "")
	assert.Error(t, err)
	_, err = EventMoment("2025-03-10", "25:00")
	assert.Error(t, err)
}

func TestElapsed_UsesFixedOffset(t *testing.T) {
	// 16:00 UTC is 00:00 of the next day in UTC+8.
	c := Fixed(time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC))

	elapsed, err := Elapsed(c, "2025-03-10", "")
	require.NoError(t, err)
	assert.True(t, elapsed, "23:59 on the 10th is before midnight UTC+8")

	elapsed, err = Elapsed(c, "2025-03-11", "00:00")
	require.NoError(t, err)
	assert.False(t, elapsed, "a moment equal to now is not strictly before it")
}

func TestManual_SetAndAdvance(t *testing.T) {
	c := Fixed(time.Date(2025, 1, 1, 0, 0, 0, 0, Zone))
	c.Advance(90 * time.Minute)
	assert.Equal(t, "2025-01-01T01:30:00.000", Timestamp(c))
	c.Set(time.Date(2025, 1, 2, 4, 0, 0, 0, time.UTC))
	assert.Equal(t, "2025-01-02 12:00", Minute(c.Now()))
}

func TestNormalizeTime(t *testing.T) {
	cases := map[string]string{"": "", "9:05": "09:05", "18:30": "18:30", "18:30:59": "18:30"}
	for in, want := range cases {
		got, err := NormalizeTime(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := NormalizeTime("noon")
	assert.Error(t, err)
}
