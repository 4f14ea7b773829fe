package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/rs/zerolog/log"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
)

// ContactsLoader turns a vCard source into recipients. It complements the
// recipients written in the YAML file; the source is read once per run.
type ContactsLoader struct {
	Fetcher VCardFetcher // Interface for network abstraction.
}

// Load opens the configured source and converts every card that carries a BDAY.
// Cards with no birthday or an unparsable one are skipped.
func (l *ContactsLoader) Load(ctx context.Context, cfg config.ContactsConfig) ([]config.Recipient, error) {
	reader, err := l.acquireStream(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w", config.ErrContactsLoad, err)
	}
	defer func() { _ = reader.Close() }()

	return decodeContacts(ctx, reader, cfg)
}

// acquireStream opens the appropriate data source based on configuration.
func (l *ContactsLoader) acquireStream(ctx context.Context, cfg config.ContactsConfig) (io.ReadCloser, error) {
	switch cfg.Source {
	case config.ContactsSourceLocal:
		if cfg.Path == "" {
			return nil, errors.New(config.ErrLocalPathEmpty)
		}
		return os.Open(cfg.Path)
	case config.ContactsSourceWeb:
		if cfg.URL == "" {
			return nil, errors.New(config.ErrWebURLEmpty)
		}
		if l.Fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		return l.Fetcher.Fetch(ctx, cfg.URL, cfg.Username, cfg.Password)
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrModeUnsupport, cfg.Source)
	}
}

func decodeContacts(ctx context.Context, r io.Reader, cfg config.ContactsConfig) ([]config.Recipient, error) {
	logger := log.With().Str(config.LogKeyComponent, config.CompContacts).Logger()
	src := &readErrRecorder{r: r}
	decoder := vcard.NewDecoder(src)

	template := cfg.TemplateFile
	if template == "" {
		template = config.DefaultTemplateFile
	}

	var processed int
	var out []config.Recipient
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A broken stream ends the import; a broken card is skipped.
			if src.err != nil {
				return nil, fmt.Errorf("%s: %w", config.ErrVCardParse, src.err)
			}
			logger.Warn().Err(err).Msg(config.MsgSkippedCard)
			continue
		}
		processed++

		bday := card.Get(config.VCardBDAY)
		if bday == nil || bday.Value == "" {
			continue
		}

		birthDate, yearKnown, err := parseDate(bday.Value)
		if err != nil {
			logger.Debug().Str(config.LogKeyValue, bday.Value).Msg(config.MsgSkippedDate)
			continue
		}

		// Name Strategy: FN (Formatted) > N (Structured) > Fallback
		name := config.FallbackName
		if fn := card.Get(config.VCardFN); fn != nil && fn.Value != "" {
			name = fn.Value
		} else if n := card.Get(config.VCardN); n != nil && n.Value != "" {
			name = n.Value
		}

		var email string
		if e := card.Get(config.VCardEmail); e != nil {
			email = e.Value
		}

		rec, err := config.NewRecipient(config.Recipient{
			Name:          name,
			Email:         email,
			SolarBirthday: birthDate.Format(config.DateLayout),
			ReminderDays:  cfg.ReminderDays,
			TemplateFile:  template,
			YearUnknown:   !yearKnown,
		})
		if err != nil {
			logger.Warn().Str(config.LogKeyName, name).Err(err).Msg(config.MsgSkippedCard)
			continue
		}
		out = append(out, rec)
	}

	logger.Info().
		Int(config.LogKeyTotal, processed).
		Int(config.LogKeyFound, len(out)).
		Msg(config.MsgContactsLoaded)
	return out, nil
}

// readErrRecorder keeps the first read failure so it can be told apart from
// a malformed card.
type readErrRecorder struct {
	r   io.Reader
	err error
}

func (e *readErrRecorder) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && e.err == nil {
		e.err = err
	}
	return n, err
}

// parseDate handles the vCard BDAY formats. Dates without a year are anchored
// in a leap year so that --02-29 survives.
func parseDate(value string) (time.Time, bool, error) {
	formatsWithYear := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}
	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return t, true, nil
		}
	}

	formatsWithoutYear := []string{config.DateFormatNoYearD, config.DateFormatNoYearB}
	for _, f := range formatsWithoutYear {
		if t, err := time.Parse(f, value); err == nil {
			return time.Date(config.DefaultLeapYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), false, nil
		}
	}

	return time.Time{}, false, errors.New(config.ErrDateParse)
}
