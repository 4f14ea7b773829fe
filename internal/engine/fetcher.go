package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
)

var (
	// ErrFetchUnauthorized is returned when the contacts server rejects the credentials.
	ErrFetchUnauthorized = errors.New("contacts server rejected the credentials")
	// ErrFetchStatus is returned for any other non-200 answer.
	ErrFetchStatus = errors.New("contacts server returned an unexpected status")
	// ErrFetchTooLarge is returned by the body reader once the export exceeds MaxBytes.
	ErrFetchTooLarge = errors.New("contacts export exceeds the size limit")
)

// VCardFetcher retrieves a remote vCard export for the contacts source.
type VCardFetcher interface {
	Fetch(ctx context.Context, url, user, pass string) (io.ReadCloser, error)
}

// HTTPFetcher downloads vCard exports over HTTP(S).
type HTTPFetcher struct {
	Client *http.Client
	// MaxBytes caps the body; reading past it fails with ErrFetchTooLarge.
	MaxBytes int64
}

// NewHTTPFetcher creates a fetcher with the default timeout and size limit.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:   &http.Client{Timeout: config.HTTPTimeout},
		MaxBytes: config.MaxHTTPResponseSize,
	}
}

// Fetch opens a CardDAV collection export or a plain .vcf URL. Credentials are
// sent as Basic Auth; the query string is left out of logs since it may carry
// a token.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL, user, pass string) (io.ReadCloser, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	logger := log.With().
		Str(config.LogKeyComponent, config.CompFetcher).
		Str(config.LogKeyURL, u.Scheme+"://"+u.Host+u.Path).
		Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrContactsLoad, err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	req.Header.Set(config.HeaderAccept, config.MimeVCardAccept)
	if user != "" || pass != "" {
		req.SetBasicAuth(user, pass)
	}

	logger.Debug().Msg(config.MsgFetchStart)
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		_ = resp.Body.Close()
		logger.Warn().Int(config.LogKeyStatus, resp.StatusCode).Msg(config.MsgFetchRejected)
		return nil, fmt.Errorf("%w: %s", ErrFetchUnauthorized, resp.Status)
	default:
		_ = resp.Body.Close()
		logger.Warn().Int(config.LogKeyStatus, resp.StatusCode).Msg(config.MsgFetchRejected)
		return nil, fmt.Errorf("%w: %s", ErrFetchStatus, resp.Status)
	}

	logger.Info().Int64(config.LogKeySizeBytes, resp.ContentLength).Msg(config.MsgFetchOK)
	limit := f.MaxBytes
	if limit <= 0 {
		limit = config.MaxHTTPResponseSize
	}
	return &cappedBody{body: resp.Body, remaining: limit}, nil
}

// cappedBody reads at most remaining bytes and reports ErrFetchTooLarge
// instead of silently truncating a bigger export.
type cappedBody struct {
	body      io.ReadCloser
	remaining int64
}

func (c *cappedBody) Read(p []byte) (int, error) {
	if c.remaining <= 0 {
		var probe [1]byte
		n, err := c.body.Read(probe[:])
		if n > 0 {
			return 0, ErrFetchTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err := c.body.Read(p)
	c.remaining -= int64(n)
	return n, err
}

func (c *cappedBody) Close() error {
	return c.body.Close()
}
