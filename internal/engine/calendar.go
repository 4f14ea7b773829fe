package engine

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/rs/zerolog/log"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
)

// SummaryFunc formats the event title for a match. It lets callers inject
// localised strings into the calendar without the engine knowing about locales.
type SummaryFunc func(m Match) string

// BuildCalendar encodes one all-day event per matched recipient, each with a
// display alarm. Unmatched results are ignored; an empty selection yields a
// valid, empty VCALENDAR.
func BuildCalendar(now time.Time, matches []Match, summary SummaryFunc) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	dtStamp := ical.NewProp(config.PropDTStamp)
	dtStamp.SetDateTime(now.UTC())

	for _, m := range matches {
		if !m.IsBirthday {
			continue
		}
		event := newBirthdayEvent(m, summary)
		event.Props.Set(dtStamp)
		cal.Children = append(cal.Children, event.Component)
	}

	if len(cal.Children) == 0 {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	log.Debug().
		Str(config.LogKeyComponent, config.CompEngine).
		Int(config.LogKeyCount, len(cal.Children)).
		Msg(config.MsgCalendarBuilt)
	return buf.Bytes(), nil
}

func newBirthdayEvent(m Match, summary SummaryFunc) *ical.Event {
	d := m.Details
	title := fmt.Sprintf(config.FallbackSummary, m.Recipient.Name)
	if summary != nil {
		title = summary(m)
	}

	event := ical.NewEvent()
	event.Props.SetText(config.PropUID, eventUID(m))
	event.Props.SetText(config.PropSummary, title)

	// CATEGORIES is a list; SetText would escape the separators.
	cats := ical.NewProp(config.PropCategories)
	cats.Value = categories(d)
	event.Props.Set(cats)

	start := ical.NewProp(config.PropDTStart)
	start.SetDate(d.Date)
	event.Props.Set(start)

	if desc := describe(d); desc != "" {
		event.Props.SetText(config.PropDescription, desc)
	}

	addAlarm(event, config.ICalTrigger, title)
	return event
}

// eventUID is deterministic so that re-imports update rather than duplicate.
func eventUID(m Match) string {
	input := fmt.Sprintf(config.FormatHashInput, m.Recipient.Name, m.Details.Date.Format(config.DateLayout), config.UIDSalt)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf(config.FormatUID, fmt.Sprintf("%x", hash[:config.UIDHashLength]), m.Details.Date.Format(config.PreviewDateStamp), config.ICalDomain)
}

func categories(d Details) string {
	var kinds []string
	if d.SolarMatch {
		kinds = append(kinds, "SOLAR")
	}
	if d.LunarMatch {
		kinds = append(kinds, "LUNAR")
	}
	return "BIRTHDAY," + strings.Join(kinds, ",")
}

func describe(d Details) string {
	var parts []string
	for _, s := range []string{d.Zodiac, d.Constellation, d.SolarTerm, d.LunarFestival, d.SolarFestival} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " / ")
}

// addAlarm appends a DISPLAY alarm (notification) to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set trigger manually to avoid "VALUE=TEXT" param
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}
