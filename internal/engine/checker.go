package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
)

// Details is the enrichment attached to a check result. Match flags, age and
// DaysUntil describe the recipient; the almanac strings describe "today".
type Details struct {
	SolarMatch bool
	LunarMatch bool
	DaysUntil  int
	Age        int
	// Date is the Gregorian day the birthday falls on.
	Date time.Time

	Zodiac        string
	GanZhiYear    string
	GanZhiMonth   string
	GanZhiDay     string
	GanZhiHour    string
	LunarMonth    string
	LunarDay      string
	LunarFestival string
	SolarFestival string
	SolarTerm     string
	Weekday       string
	Constellation string
}

// Match is the outcome of checking one recipient.
type Match struct {
	Recipient  config.Recipient
	IsBirthday bool
	Details    Details
}

// Checker finds recipients whose birthday falls inside their reminder window.
type Checker struct {
	Clock    Clock    // Interface for time mocking.
	Calendar Calendar // Black-box solar/lunar conversion.
}

// NewChecker returns a Checker on the wall clock and the lunar-go calendar.
func NewChecker() *Checker {
	return &Checker{
		Clock:    RealClock{},
		Calendar: LunarCalendar{},
	}
}

// Check evaluates every recipient against today. Recipients are processed
// sequentially and a failing recipient never stops the batch.
func (c *Checker) Check(recipients []config.Recipient) []Match {
	today := c.Clock.Now()
	results := make([]Match, 0, len(recipients))
	for _, r := range recipients {
		log.Debug().
			Str(config.LogKeyComponent, config.CompEngine).
			Str(config.LogKeyName, r.Name).
			Msg(config.MsgCheckRecipient)
		results = append(results, c.CheckAt(today, r))
	}
	return results
}

// CheckAt scans [today, today+ReminderDays] for the recipient.
func (c *Checker) CheckAt(today time.Time, r config.Recipient) Match {
	return c.Window(today, r, r.ReminderDays)
}

// Window scans [today, today+days] for the recipient. Conversion errors are
// logged and reported as "not a birthday" with empty details.
func (c *Checker) Window(today time.Time, r config.Recipient, days int) Match {
	d, err := c.scan(today, r, days)
	if err != nil {
		log.Warn().
			Str(config.LogKeyComponent, config.CompEngine).
			Str(config.LogKeyName, r.Name).
			Err(err).
			Msg(config.MsgBdayInvalid)
		return Match{Recipient: r}
	}

	m := Match{Recipient: r, IsBirthday: d.SolarMatch || d.LunarMatch, Details: d}
	if m.IsBirthday {
		log.Info().
			Str(config.LogKeyComponent, config.CompEngine).
			Str(config.LogKeyName, r.Name).
			Bool(config.LogKeySolar, d.SolarMatch).
			Bool(config.LogKeyLunar, d.LunarMatch).
			Int(config.LogKeyDaysUntil, d.DaysUntil).
			Int(config.LogKeyAge, d.Age).
			Msg(config.MsgBdayFound)
	}
	return m
}

func (c *Checker) scan(today time.Time, r config.Recipient, days int) (Details, error) {
	loc := today.Location()
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)

	var solarBirth, lunarBirth time.Time
	var birthLunar Almanac
	var err error

	if r.SolarBirthday != "" {
		if solarBirth, err = config.ParseBirthday(r.SolarBirthday, loc); err != nil {
			return Details{}, err
		}
	}
	if r.LunarBirthday != "" {
		if lunarBirth, err = config.ParseBirthday(r.LunarBirthday, loc); err != nil {
			return Details{}, err
		}
		if birthLunar, err = c.convert(lunarBirth); err != nil {
			return Details{}, err
		}
	}

	todayAlmanac, err := c.convert(start)
	if err != nil {
		return Details{}, err
	}
	d := detailsFor(todayAlmanac)

	solarOffset, lunarOffset := -1, -1

	if !solarBirth.IsZero() {
		for i := 0; i <= days; i++ {
			candidate := start.AddDate(0, 0, i)
			if isSolarAnniversary(candidate, solarBirth) {
				solarOffset = i
				break
			}
		}
	}

	if !lunarBirth.IsZero() {
		for i := 0; i <= days; i++ {
			candidate := start.AddDate(0, 0, i)
			a, err := c.convert(candidate)
			if err != nil {
				return Details{}, err
			}
			if a.LunarMonth == birthLunar.LunarMonth && a.LunarDay == birthLunar.LunarDay {
				lunarOffset = i
				break
			}
		}
	}

	d.SolarMatch = solarOffset >= 0
	d.LunarMatch = lunarOffset >= 0
	if !d.SolarMatch && !d.LunarMatch {
		return d, nil
	}

	// The lowest offset decides DaysUntil and Age; solar wins a tie.
	offset, birth := solarOffset, solarBirth
	if !d.SolarMatch || (d.LunarMatch && lunarOffset < solarOffset) {
		offset, birth = lunarOffset, lunarBirth
	}
	candidate := start.AddDate(0, 0, offset)
	d.DaysUntil = offset
	d.Date = candidate
	if !r.YearUnknown {
		d.Age = candidate.Year() - birth.Year()
	}

	// The person's own zodiac replaces today's year animal.
	if !lunarBirth.IsZero() {
		d.Zodiac = birthLunar.Zodiac
	} else if a, err := c.convert(solarBirth); err == nil && !r.YearUnknown {
		d.Zodiac = a.Zodiac
	}
	return d, nil
}

func (c *Checker) convert(t time.Time) (Almanac, error) {
	a, err := c.Calendar.SolarToLunar(t.Year(), int(t.Month()), t.Day())
	if err != nil {
		return Almanac{}, fmt.Errorf("%s %s: %w", config.ErrAlmanac, t.Format(config.DateLayout), err)
	}
	return a, nil
}

// isSolarAnniversary compares month and day. A Feb 29 birthday is observed on
// Mar 1 in common years, the way time.Date normalises the date.
func isSolarAnniversary(candidate, birth time.Time) bool {
	observed := time.Date(candidate.Year(), birth.Month(), birth.Day(), 0, 0, 0, 0, candidate.Location())
	return candidate.Month() == observed.Month() && candidate.Day() == observed.Day()
}

func detailsFor(a Almanac) Details {
	return Details{
		Zodiac:        a.Zodiac,
		GanZhiYear:    a.GanZhiYear,
		GanZhiMonth:   a.GanZhiMonth,
		GanZhiDay:     a.GanZhiDay,
		GanZhiHour:    a.GanZhiHour,
		LunarMonth:    a.LunarMonthName,
		LunarDay:      a.LunarDayName,
		LunarFestival: strings.Join(a.LunarFestivals, config.FestivalSeparator),
		SolarFestival: strings.Join(a.SolarFestivals, config.FestivalSeparator),
		SolarTerm:     a.SolarTerm,
		Weekday:       a.Weekday,
		Constellation: a.Constellation,
	}
}
