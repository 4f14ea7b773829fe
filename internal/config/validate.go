package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrNoRecipients      = errors.New("no recipients configured")
	ErrNoChannels        = errors.New("no notification types configured")
	ErrUnknownChannel    = errors.New("unknown notification type")
	ErrSMTPMissing       = errors.New("email notification enabled but SMTP config missing")
	ErrSMTPHost          = errors.New("SMTP host is required")
	ErrServerChanMissing = errors.New("serverchan notification enabled but config missing")
	ErrServerChanKey     = errors.New("serverchan key is required")
	ErrNoEmailAddress    = errors.New("email notification enabled but recipient has no email")
	ErrBadBirthday       = errors.New("malformed birthday")
	ErrBadContacts       = errors.New("invalid contacts source")
)

// Validate checks the settings for completeness. It reports every problem it
// finds at once; a nil result means the configuration is usable for `run`.
func Validate(s *Settings) error {
	var errs []error

	if len(s.Recipients) == 0 && s.Contacts == nil {
		errs = append(errs, ErrNoRecipients)
	}
	if len(s.Channels) == 0 {
		errs = append(errs, ErrNoChannels)
	}

	for _, ch := range s.Channels {
		switch ch {
		case ChannelEmail:
			if s.SMTP == nil {
				errs = append(errs, ErrSMTPMissing)
			} else if s.SMTP.Host == "" {
				errs = append(errs, ErrSMTPHost)
			}
		case ChannelServerChan:
			if s.ServerChan == nil {
				errs = append(errs, ErrServerChanMissing)
			} else if s.ServerChan.Key == "" {
				errs = append(errs, ErrServerChanKey)
			}
		default:
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownChannel, ch))
		}
	}

	if c := s.Contacts; c != nil {
		switch c.Source {
		case ContactsSourceLocal:
			if c.Path == "" {
				errs = append(errs, fmt.Errorf("%w: %s", ErrBadContacts, ErrLocalPathEmpty))
			}
		case ContactsSourceWeb:
			if c.URL == "" {
				errs = append(errs, fmt.Errorf("%w: %s", ErrBadContacts, ErrWebURLEmpty))
			}
		default:
			errs = append(errs, fmt.Errorf("%w: %q", ErrBadContacts, c.Source))
		}
	}

	emailOn := s.HasChannel(ChannelEmail)
	for _, r := range s.Recipients {
		if emailOn && r.Email == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNoEmailAddress, r.Name))
		}
		for _, date := range []string{r.SolarBirthday, r.LunarBirthday} {
			if date == "" {
				continue
			}
			if _, err := ParseBirthday(date, time.UTC); err != nil {
				errs = append(errs, fmt.Errorf("%w: %s: %w", ErrBadBirthday, r.Name, err))
			}
		}
	}

	err := errors.Join(errs...)
	logger := log.With().Str(LogKeyComponent, CompConfig).Logger()
	if err != nil {
		logger.Warn().Err(err).Int(LogKeyCount, len(errs)).Msg(MsgConfigInvalid)
		return err
	}
	logger.Info().Msg(MsgConfigValid)
	return nil
}
