package engine_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
	"github.com/tartampluch/go-birthday-reminder/internal/engine"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

// MockClock controls time for deterministic testing.
type MockClock struct {
	CurrentTime time.Time
}

func (m MockClock) Now() time.Time {
	return m.CurrentTime
}

// fakeCalendar maps Gregorian dates to lunar month/day pairs. Unknown dates
// map to month 0 so they never match, and dates in failOn return an error.
type fakeCalendar struct {
	lunar  map[string][2]int
	failOn map[string]bool
	calls  int
}

func (f *fakeCalendar) SolarToLunar(year, month, day int) (engine.Almanac, error) {
	f.calls++
	key := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	if f.failOn[key] {
		return engine.Almanac{}, errors.New("boom")
	}
	md := f.lunar[key]
	return engine.Almanac{
		LunarYear:      year,
		LunarMonth:     md[0],
		LunarDay:       md[1],
		GanZhiYear:     "甲辰",
		LunarMonthName: "正月",
		LunarDayName:   "初一",
		Zodiac:         "zodiac-" + key[:4],
		Weekday:        "星期六",
		Constellation:  "水瓶座",
		SolarTerm:      "立春",
	}, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func newChecker(today time.Time, cal engine.Calendar) *engine.Checker {
	return &engine.Checker{Clock: MockClock{CurrentTime: today}, Calendar: cal}
}

// -----------------------------------------------------------------------------
// Test Cases
// -----------------------------------------------------------------------------

func TestCheckAt_SolarWithinWindow(t *testing.T) {
	c := newChecker(day(2000, 3, 8), &fakeCalendar{})
	r := config.Recipient{Name: "Ann", SolarBirthday: "2000-03-10", ReminderDays: 3}

	m := c.CheckAt(day(2000, 3, 8), r)

	assert.True(t, m.IsBirthday)
	assert.True(t, m.Details.SolarMatch)
	assert.False(t, m.Details.LunarMatch)
	assert.Equal(t, 2, m.Details.DaysUntil)
	assert.Equal(t, 0, m.Details.Age)
	assert.Equal(t, time.Date(2000, 3, 10, 0, 0, 0, 0, time.UTC), m.Details.Date)
}

func TestCheckAt_OutsideWindow(t *testing.T) {
	c := newChecker(day(2000, 3, 8), &fakeCalendar{})

	tests := []struct {
		name string
		days int
		want bool
	}{
		{"window too short", 1, false},
		{"window reaches birthday", 2, true},
		{"zero-day window", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := config.Recipient{Name: "Ann", SolarBirthday: "2000-03-10", ReminderDays: tt.days}
			assert.Equal(t, tt.want, c.CheckAt(day(2000, 3, 8), r).IsBirthday)
		})
	}
}

func TestCheckAt_LunarOnly(t *testing.T) {
	cal := &fakeCalendar{lunar: map[string][2]int{
		"1990-02-15": {1, 20}, // stored lunar birthday
		"2024-02-29": {1, 20}, // solar date differs, lunar date equal
	}}
	c := newChecker(day(2024, 2, 29), cal)
	r := config.Recipient{Name: "Bo", LunarBirthday: "1990-02-15"}

	m := c.CheckAt(day(2024, 2, 29), r)

	assert.True(t, m.IsBirthday)
	assert.False(t, m.Details.SolarMatch)
	assert.True(t, m.Details.LunarMatch)
	assert.Equal(t, 0, m.Details.DaysUntil)
	assert.Equal(t, 34, m.Details.Age, "2024 - 1990")
	assert.Equal(t, "zodiac-1990", m.Details.Zodiac, "zodiac comes from the lunar birthday")
}

// Lunar anniversaries need the exact (month, day) pair. Leap months are
// negative, so a leap-month birthday skips years without that leap month, and
// day 30 skips years where the month has 29 days.
func TestCheckAt_LunarExactMonthDay(t *testing.T) {
	tests := []struct {
		name  string
		birth [2]int
		days  map[string][2]int
		want  bool
	}{
		{
			name:  "leap month birthday in a year without the leap month",
			birth: [2]int{-4, 10},
			days:  map[string][2]int{"2024-05-17": {4, 10}, "2024-05-18": {4, 11}},
			want:  false,
		},
		{
			name:  "leap month birthday in a year with the same leap month",
			birth: [2]int{-4, 10},
			days:  map[string][2]int{"2024-05-17": {-4, 10}},
			want:  true,
		},
		{
			name:  "regular month birthday does not match the leap month",
			birth: [2]int{4, 10},
			days:  map[string][2]int{"2024-05-17": {-4, 10}},
			want:  false,
		},
		{
			name:  "day 30 birthday in a 29 day month",
			birth: [2]int{8, 30},
			days:  map[string][2]int{"2024-05-17": {8, 29}, "2024-05-18": {9, 1}},
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lunar := map[string][2]int{"1990-06-01": tt.birth}
			for k, v := range tt.days {
				lunar[k] = v
			}
			c := newChecker(day(2024, 5, 17), &fakeCalendar{lunar: lunar})
			r := config.Recipient{Name: "Lin", LunarBirthday: "1990-06-01", ReminderDays: 1}

			m := c.CheckAt(day(2024, 5, 17), r)
			assert.Equal(t, tt.want, m.IsBirthday)
			assert.Equal(t, tt.want, m.Details.LunarMatch)
		})
	}
}

func TestCheckAt_Age(t *testing.T) {
	c := newChecker(day(2024, 6, 1), &fakeCalendar{})
	m := c.CheckAt(day(2024, 6, 1), config.Recipient{Name: "Cy", SolarBirthday: "1990-06-01"})

	require.True(t, m.IsBirthday)
	assert.Equal(t, 34, m.Details.Age)
	assert.Equal(t, "zodiac-1990", m.Details.Zodiac, "birth zodiac replaces today's")
}

func TestCheckAt_YearUnknownHasNoAge(t *testing.T) {
	c := newChecker(day(2024, 6, 1), &fakeCalendar{})
	r := config.Recipient{Name: "Imported", SolarBirthday: "2000-06-01", YearUnknown: true}

	m := c.CheckAt(day(2024, 6, 1), r)

	require.True(t, m.IsBirthday)
	assert.Equal(t, 0, m.Details.Age)
}

func TestCheckAt_BothMatch_LowestOffsetWins(t *testing.T) {
	cal := &fakeCalendar{lunar: map[string][2]int{
		"1990-01-20": {12, 24},
		"2024-01-21": {12, 24}, // lunar anniversary one day out
	}}
	today := day(2024, 1, 20)
	c := newChecker(today, cal)
	r := config.Recipient{Name: "Dee", SolarBirthday: "1990-01-23", LunarBirthday: "1990-01-20", ReminderDays: 5}

	m := c.CheckAt(today, r)

	assert.True(t, m.Details.SolarMatch, "both flags are preserved")
	assert.True(t, m.Details.LunarMatch)
	assert.Equal(t, 1, m.Details.DaysUntil, "lunar anniversary is closer")
	assert.Equal(t, 34, m.Details.Age)
}

func TestCheckAt_BothMatch_SolarWinsTie(t *testing.T) {
	cal := &fakeCalendar{lunar: map[string][2]int{
		"1990-05-01": {3, 7},
		"2024-05-03": {3, 7},
	}}
	today := day(2024, 5, 1)
	c := newChecker(today, cal)
	r := config.Recipient{Name: "Eve", SolarBirthday: "1991-05-03", LunarBirthday: "1990-05-01", ReminderDays: 3}

	m := c.CheckAt(today, r)

	assert.Equal(t, 2, m.Details.DaysUntil)
	assert.Equal(t, 33, m.Details.Age, "age is taken from the solar birthday")
}

func TestCheckAt_Leapling(t *testing.T) {
	c := newChecker(day(2025, 3, 1), &fakeCalendar{})
	r := config.Recipient{Name: "Leap Baby", SolarBirthday: "2000-02-29"}

	m := c.CheckAt(day(2025, 3, 1), r)
	assert.True(t, m.IsBirthday, "Feb 29 is observed on Mar 1 in common years")
	assert.Equal(t, 25, m.Details.Age)

	m = c.CheckAt(day(2024, 3, 1), r)
	assert.False(t, m.IsBirthday, "leap years keep Feb 29")
}

func TestCheck_MalformedBirthdayIsIsolated(t *testing.T) {
	today := day(2024, 8, 8)
	c := newChecker(today, &fakeCalendar{})
	recipients := []config.Recipient{
		{Name: "Broken", SolarBirthday: "2000-13-45"},
		{Name: "Garbage", LunarBirthday: "not-a-date"},
		{Name: "Fine", SolarBirthday: "1999-08-08"},
	}

	results := c.Check(recipients)

	require.Len(t, results, 3)
	for _, m := range results[:2] {
		assert.False(t, m.IsBirthday, m.Recipient.Name)
		assert.Equal(t, engine.Details{}, m.Details, "details must be empty for %s", m.Recipient.Name)
	}
	assert.True(t, results[2].IsBirthday)
	assert.Equal(t, 25, results[2].Details.Age)
}

func TestCheck_ConversionErrorIsIsolated(t *testing.T) {
	today := day(2024, 8, 8)
	cal := &fakeCalendar{failOn: map[string]bool{"1990-01-01": true}}
	c := newChecker(today, cal)

	results := c.Check([]config.Recipient{
		{Name: "Lunar", LunarBirthday: "1990-01-01"},
		{Name: "Solar", SolarBirthday: "1990-08-08"},
	})

	assert.False(t, results[0].IsBirthday)
	assert.Equal(t, engine.Details{}, results[0].Details)
	assert.True(t, results[1].IsBirthday)
}

func TestCheck_AlmanacAlwaysFilled(t *testing.T) {
	today := day(2024, 2, 10)
	c := newChecker(today, &fakeCalendar{})

	m := c.Check([]config.Recipient{{Name: "Nobody", SolarBirthday: "1990-12-25"}})[0]

	assert.False(t, m.IsBirthday)
	assert.Equal(t, "甲辰", m.Details.GanZhiYear)
	assert.Equal(t, "正月", m.Details.LunarMonth)
	assert.Equal(t, "星期六", m.Details.Weekday)
	assert.Equal(t, "立春", m.Details.SolarTerm)
	assert.Equal(t, "zodiac-2024", m.Details.Zodiac, "today's animal when nothing matched")
}

func TestCheck_Idempotent(t *testing.T) {
	today := day(2024, 2, 10)
	cal := &fakeCalendar{lunar: map[string][2]int{"1988-02-17": {1, 1}, "2024-02-10": {1, 1}}}
	c := newChecker(today, cal)
	recipients := []config.Recipient{
		{Name: "A", SolarBirthday: "1990-02-12", ReminderDays: 3},
		{Name: "B", LunarBirthday: "1988-02-17"},
		{Name: "C", SolarBirthday: "bad"},
	}

	first := c.Check(recipients)
	second := c.Check(recipients)

	assert.Equal(t, first, second)
}

func TestWindow_OverridesReminderDays(t *testing.T) {
	today := day(2024, 1, 1)
	c := newChecker(today, &fakeCalendar{})
	r := config.Recipient{Name: "Later", SolarBirthday: "1980-12-31"}

	assert.False(t, c.CheckAt(today, r).IsBirthday)

	m := c.Window(today, r, 365)
	require.True(t, m.IsBirthday)
	assert.Equal(t, 365, m.Details.DaysUntil)
	assert.Equal(t, 44, m.Details.Age)
}

// -----------------------------------------------------------------------------
// LunarCalendar (real library)
// -----------------------------------------------------------------------------

func TestLunarCalendar_KnownDates(t *testing.T) {
	cal := engine.LunarCalendar{}

	tests := []struct {
		name       string
		y, m, d    int
		lunarMonth int
		lunarDay   int
	}{
		{"Spring Festival 2024", 2024, 2, 10, 1, 1},
		{"Mid-Autumn 2024", 2024, 9, 17, 8, 15},
		{"Spring Festival 2023", 2023, 1, 22, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := cal.SolarToLunar(tt.y, tt.m, tt.d)
			require.NoError(t, err)
			assert.Equal(t, tt.lunarMonth, a.LunarMonth)
			assert.Equal(t, tt.lunarDay, a.LunarDay)
			assert.NotEmpty(t, a.GanZhiYear)
			assert.NotEmpty(t, a.GanZhiDay)
			assert.NotEmpty(t, a.Zodiac)
			assert.NotEmpty(t, a.Constellation)
		})
	}
}

func TestLunarCalendar_InvalidDate(t *testing.T) {
	_, err := engine.LunarCalendar{}.SolarToLunar(2023, 2, 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrAlmanac)
}

func TestLunarCalendar_WithChecker(t *testing.T) {
	// Lunar birthday stored as 1990-01-27, which was 1990 lunar 1/1.
	// 2024-02-10 is lunar 1/1 again.
	today := day(2024, 2, 8)
	c := newChecker(today, engine.LunarCalendar{})
	r := config.Recipient{Name: "Chun", LunarBirthday: "1990-01-27", ReminderDays: 3}

	m := c.CheckAt(today, r)

	require.True(t, m.IsBirthday)
	assert.True(t, m.Details.LunarMatch)
	assert.Equal(t, 2, m.Details.DaysUntil)
	assert.Equal(t, 34, m.Details.Age)
}
