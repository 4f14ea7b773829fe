package config

import (
	"fmt"
	"time"
)

// Recipient is one person to remind about. Birthdays are kept as the raw
// YYYY-MM-DD strings from the configuration; the checker parses them so that a
// malformed value only disables its own recipient.
type Recipient struct {
	Name  string
	Email string

	// SolarBirthday is the Gregorian birthdate.
	SolarBirthday string
	// LunarBirthday is the Gregorian date on which the lunar birthdate originally fell.
	LunarBirthday string

	ReminderDays int
	TemplateFile string

	// YearUnknown marks imported contacts whose birthday had no year (--MM-DD).
	YearUnknown bool
}

// NewRecipient rejects a recipient without a name, without any birthday or with negative reminder days.
func NewRecipient(r Recipient) (Recipient, error) {
	if r.Name == "" {
		return Recipient{}, ErrNoName
	}
	if r.SolarBirthday == "" && r.LunarBirthday == "" {
		return Recipient{}, ErrNoBirthday
	}
	if r.ReminderDays < 0 {
		return Recipient{}, ErrNegativeDays
	}
	return r, nil
}

// ParseBirthday parses a YYYY-MM-DD birthday string in the given location.
func ParseBirthday(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s %q: %w", ErrDateParse, value, err)
	}
	return t, nil
}
