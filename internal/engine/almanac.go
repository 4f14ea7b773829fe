package engine

import (
	"container/list"
	"fmt"
	"time"

	"github.com/6tail/lunar-go/calendar"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
)

// Almanac is the calendrical view of a single Gregorian day.
type Almanac struct {
	LunarYear  int
	LunarMonth int // negative for a leap month
	LunarDay   int

	GanZhiYear  string
	GanZhiMonth string
	GanZhiDay   string
	GanZhiHour  string

	LunarMonthName string
	LunarDayName   string

	LunarFestivals []string
	SolarFestivals []string
	SolarTerm      string

	Zodiac        string // year animal
	Weekday       string
	Constellation string
}

// Calendar converts a Gregorian date into its lunar representation.
// Implementations must be safe for concurrent use and free of side effects.
type Calendar interface {
	SolarToLunar(year, month, day int) (Almanac, error)
}

// LunarCalendar implements Calendar on top of github.com/6tail/lunar-go.
type LunarCalendar struct{}

// SolarToLunar converts the given Gregorian date. Dates that do not exist are
// rejected before reaching the library, and library panics are returned as errors.
func (LunarCalendar) SolarToLunar(year, month, day int) (a Almanac, err error) {
	if !isValidDate(year, month, day) {
		return Almanac{}, fmt.Errorf("%s: %04d-%02d-%02d", config.ErrAlmanac, year, month, day)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v", config.ErrAlmanac, r)
		}
	}()

	solar := calendar.NewSolarFromYmd(year, month, day)
	lunar := solar.GetLunar()

	return Almanac{
		LunarYear:      lunar.GetYear(),
		LunarMonth:     lunar.GetMonth(),
		LunarDay:       lunar.GetDay(),
		GanZhiYear:     lunar.GetYearInGanZhi(),
		GanZhiMonth:    lunar.GetMonthInGanZhi(),
		GanZhiDay:      lunar.GetDayInGanZhi(),
		GanZhiHour:     lunar.GetTimeInGanZhi(),
		LunarMonthName: lunar.GetMonthInChinese() + config.LunarMonthSuffix,
		LunarDayName:   lunar.GetDayInChinese(),
		LunarFestivals: listStrings(lunar.GetFestivals()),
		SolarFestivals: listStrings(solar.GetFestivals()),
		SolarTerm:      lunar.GetJieQi(),
		Zodiac:         lunar.GetYearShengXiao(),
		Weekday:        "星期" + solar.GetWeekInChinese(),
		Constellation:  solar.GetXingZuo() + "座",
	}, nil
}

func isValidDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

func listStrings(l *list.List) []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, l.Len())
	for e := l.Front(); e != nil; e = e.Next() {
		if s, ok := e.Value.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
