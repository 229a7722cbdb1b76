package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
)

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2023, time.March, 14, 0, 0, 0, 0, time.UTC)

	for _, raw := range []string{"3/14/2023", "03/14/2023", "2023-03-14"} {
		got, err := ParseDate(raw)
		require.NoError(t, err, "raw=%q", raw)
		assert.True(t, got.Equal(want), "raw=%q", raw)
	}

	_, err := ParseDate("14.03.2023")
	assert.Error(t, err)
	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestParseMonthDay(t *testing.T) {
	md, year, err := ParseMonthDay("3/14")
	require.NoError(t, err)
	assert.Equal(t, model.MonthDay{Month: time.March, Day: 14}, md)
	assert.Zero(t, year)

	md, year, err = ParseMonthDay("03/14/2018")
	require.NoError(t, err)
	assert.Equal(t, model.MonthDay{Month: time.March, Day: 14}, md)
	assert.Equal(t, 2018, year)
}

func TestParseMonthDayRejectsOutOfRange(t *testing.T) {
	for _, raw := range []string{"13/01", "0/10", "2/30", "4/31", "junk", "14"} {
		_, _, err := ParseMonthDay(raw)
		assert.Error(t, err, "raw=%q", raw)
	}

	// Feb 29 is accepted as a month/day; leap validity is deferred until
	// the year is known.
	_, _, err := ParseMonthDay("2/29")
	assert.NoError(t, err)
}

func TestConstructEventDate(t *testing.T) {
	md := model.MonthDay{Month: time.March, Day: 14}
	d, ok := ConstructEventDate(md, 2023)
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, time.March, 14, 0, 0, 0, 0, time.UTC), d)
}

func TestConstructEventDateFeb29(t *testing.T) {
	md := model.MonthDay{Month: time.February, Day: 29}

	d, ok := ConstructEventDate(md, 2024)
	require.True(t, ok)
	assert.Equal(t, 29, d.Day())

	// Non-leap year: rejected outright, never normalized to March 1.
	_, ok = ConstructEventDate(md, 2023)
	assert.False(t, ok)
}
