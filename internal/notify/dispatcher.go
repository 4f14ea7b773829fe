package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
	"github.com/tartampluch/go-birthday-reminder/internal/engine"
	"golang.org/x/sync/errgroup"
)

// Failure records one (recipient, channel) pair that could not be delivered.
type Failure struct {
	Recipient string
	Channel   string
	Err       error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s via %s: %v", f.Recipient, f.Channel, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Report is the outcome of one dispatch.
type Report struct {
	Matched  int
	Sent     int
	Failures []Failure
}

// OK reports whether every task succeeded.
func (r Report) OK() bool {
	return len(r.Failures) == 0
}

// Err joins every failure, or returns nil.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return fmt.Errorf("%s: %w", config.ErrDeliveryFailed, errors.Join(errs...))
}

// Dispatcher fans matched recipients out to every sender.
type Dispatcher struct {
	Senders []Sender
}

// Dispatch runs one task per (matched recipient, sender) pair concurrently and
// waits for all of them. A failing pair never cancels or skips the others; its
// error is logged and recorded in the report.
func (d *Dispatcher) Dispatch(ctx context.Context, matches []engine.Match) Report {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		report Report
	)

	record := func(name, channel string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.Failures = append(report.Failures, Failure{Recipient: name, Channel: channel, Err: err})
			return
		}
		report.Sent++
	}

	for _, m := range matches {
		if !m.IsBirthday {
			continue
		}
		report.Matched++

		for _, s := range d.Senders {
			g.Go(func() error {
				err := deliver(ctx, s, m)
				record(m.Recipient.Name, s.Name(), err)
				return err
			})
		}
	}

	// Wait only returns the first error; the report holds all of them.
	_ = g.Wait()
	if ctx.Err() != nil {
		log.Warn().
			Str(config.LogKeyComponent, config.CompNotify).
			Int(config.LogKeyFailures, len(report.Failures)).
			Msg(config.MsgCtxCancel)
	}

	sort.Slice(report.Failures, func(i, j int) bool {
		a, b := report.Failures[i], report.Failures[j]
		if a.Recipient != b.Recipient {
			return a.Recipient < b.Recipient
		}
		return a.Channel < b.Channel
	})
	return report
}

func deliver(ctx context.Context, s Sender, m engine.Match) error {
	logger := log.With().
		Str(config.LogKeyComponent, config.CompNotify).
		Str(config.LogKeyName, m.Recipient.Name).
		Str(config.LogKeyChannel, s.Name()).
		Logger()

	content, err := s.Render(m.Recipient.Name, m.Recipient.TemplateFile, m.Details)
	if err != nil {
		logger.Error().Err(err).Msg(config.ErrRender)
		return fmt.Errorf("%s: %w", config.ErrRender, err)
	}

	if err := s.Send(ctx, m.Recipient, content, m.Details.DaysUntil, m.Details.Age); err != nil {
		logger.Error().Err(err).Msg(config.MsgSendFailed)
		return err
	}

	logger.Info().Msg(config.MsgSendOK)
	return nil
}
