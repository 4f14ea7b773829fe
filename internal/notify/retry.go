package notify

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
)

// RetryPolicy is a bounded exponential backoff.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
}

// PolicyFrom converts the configured retry block.
func PolicyFrom(cfg config.RetryConfig) RetryPolicy {
	p := RetryPolicy{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay,
		Multiplier:   cfg.Multiplier,
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = config.DefaultRetryAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = config.DefaultRetryDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = config.DefaultRetryMultiplier
	}
	return p
}

// Do runs op until it succeeds, returns a permanent error (see Permanent),
// the attempts are exhausted or ctx is done. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, logger zerolog.Logger, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = time.Duration(float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(p.MaxAttempts)))
	b.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	attempt := 0
	wrapped := func() error {
		attempt++
		return op()
	}
	notify := func(err error, next time.Duration) {
		logger.Warn().
			Err(err).
			Int(config.LogKeyAttempt, attempt).
			Int(config.LogKeyMax, attempts).
			Dur(config.LogKeyDelay, next).
			Msg(config.MsgRetrying)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
	return backoff.RetryNotify(wrapped, policy, notify)
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
