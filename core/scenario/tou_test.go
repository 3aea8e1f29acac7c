package scenario

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/storageopt/core/model"
)

// 2024-01-01 is a Monday.
var monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestExpandPrices_DailyBands(t *testing.T) {
	periods := []Period{
		{Start: "21:00", End: "07:00", Import: 0.1},
		{Start: "07:00", End: "17:00", Import: 0.2, Export: 0.05},
		{Start: "17:00", End: "21:00", Import: 0.5, Export: 0.08},
	}
	imp, exp, err := ExpandPrices(periods, Clock{Start: monday, IntervalMinutes: 60}, 24)
	require.NoError(t, err)
	require.Len(t, imp, 24)

	assert.Equal(t, 0.1, imp[3])
	assert.Equal(t, 0.1, imp[6])
	assert.Equal(t, 0.2, imp[7])
	assert.Equal(t, 0.2, imp[16])
	assert.Equal(t, 0.5, imp[17])
	assert.Equal(t, 0.5, imp[20])
	assert.Equal(t, 0.1, imp[21])
	assert.Equal(t, 0.0, exp[0])
	assert.Equal(t, 0.08, exp[18])
}

func TestExpandPrices_OverlapsAddAndGapsAreFree(t *testing.T) {
	periods := []Period{
		{Start: "00:00", End: "00:00", Import: 0.1},
		{Start: "12:00", End: "13:00", Import: 0.3},
		{Start: "18:00", End: "19:00", Export: 0.2},
	}
	imp, exp, err := ExpandPrices(periods, Clock{Start: monday, IntervalMinutes: 30}, 48)
	require.NoError(t, err)
	assert.Equal(t, 0.1, imp[0])
	assert.InDelta(t, 0.4, imp[24], 1e-12)
	assert.InDelta(t, 0.4, imp[25], 1e-12)
	assert.Equal(t, 0.1, imp[26])
	assert.Equal(t, 0.2, exp[36])
	assert.Equal(t, 0.0, exp[38])
}

func TestExpandPrices_Weekdays(t *testing.T) {
	// Friday night rate running into Saturday morning.
	friday := monday.AddDate(0, 0, 4)
	periods := []Period{{Start: "23:00", End: "02:00", Days: []int{5}, Import: 1}}
	imp, _, err := ExpandPrices(periods, Clock{Start: friday, IntervalMinutes: 60}, 48)
	require.NoError(t, err)

	assert.Equal(t, 0.0, imp[22])
	assert.Equal(t, 1.0, imp[23])
	assert.Equal(t, 1.0, imp[24])
	assert.Equal(t, 1.0, imp[25])
	assert.Equal(t, 0.0, imp[26])
	// Saturday 23:00 is not a Friday window.
	assert.Equal(t, 0.0, imp[47])
}

func TestExpandPrices_Invalid(t *testing.T) {
	clock := Clock{Start: monday, IntervalMinutes: 60}
	for _, p := range []Period{
		{Start: "7", End: "09:00"},
		{Start: "07:00", End: "25:00"},
		{Start: "07:60", End: "09:00"},
		{Start: "07:00", End: "09:00", Days: []int{0}},
	} {
		_, _, err := ExpandPrices([]Period{p}, clock, 4)
		assert.True(t, errors.Is(err, ErrScenario), "%+v: %v", p, err)
	}
	_, _, err := ExpandPrices([]Period{{Start: "00:00", End: "24:00", Import: 1}}, clock, 2)
	assert.NoError(t, err)
}

func TestExpandActive(t *testing.T) {
	start := monday.Add(15 * time.Hour)
	active, err := ExpandActive([]Period{{Start: "16:00", End: "18:00"}}, Clock{Start: start, IntervalMinutes: 30}, 8)
	require.NoError(t, err)
	assert.Equal(t, model.Series{0, 0, 1, 1, 1, 1, 0, 0}, active)
}

func TestClock_At(t *testing.T) {
	c := Clock{Start: monday, IntervalMinutes: 7.5}
	assert.Equal(t, monday.Add(15*time.Minute), c.At(2))
}
