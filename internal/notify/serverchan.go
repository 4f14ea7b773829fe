package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
	"github.com/tartampluch/go-birthday-reminder/internal/engine"
	"github.com/tartampluch/go-birthday-reminder/internal/locale"
)

// pushResponse is the part of the ServerChan reply we rely on. A reply
// without a code is not a success.
type pushResponse struct {
	Code    *int   `json:"code"`
	Message string `json:"message"`
}

// ServerChanSender pushes plain-text reminders through the ServerChan webhook.
type ServerChanSender struct {
	Key        string
	BaseURL    string
	Client     *http.Client
	Translator *locale.Translator
	Retry      RetryPolicy
}

// NewServerChanSender creates a sender for the given key.
func NewServerChanSender(cfg config.ServerChanConfig, tr *locale.Translator, retry RetryPolicy) *ServerChanSender {
	base := cfg.BaseURL
	if base == "" {
		base = config.DefaultServerChanURL
	}
	return &ServerChanSender{
		Key:        cfg.Key,
		BaseURL:    strings.TrimRight(base, "/"),
		Client:     &http.Client{Timeout: config.HTTPTimeout},
		Translator: tr,
		Retry:      retry,
	}
}

// Name implements Sender.
func (s *ServerChanSender) Name() string {
	return config.ChannelServerChan
}

// Render implements Sender. The template is ignored: push messages are a
// fixed set of localised lines chosen by the match flags.
func (s *ServerChanSender) Render(name, _ string, d engine.Details) (Content, error) {
	lines := []string{
		s.Translator.Msg(config.TKeyGreeting, map[string]any{"Name": name}),
		s.Translator.Msg(headlineKey(d), map[string]any{"Days": d.DaysUntil}),
		s.Translator.Msg(config.TKeyLblZodiac, map[string]any{"Value": d.Zodiac}),
		s.Translator.Msg(config.TKeyLblConstell, map[string]any{"Value": d.Constellation}),
	}

	optional := []struct {
		key, value string
	}{
		{config.TKeyLblSolarTerm, d.SolarTerm},
		{config.TKeyLblLunarFest, d.LunarFestival},
		{config.TKeyLblSolarFest, d.SolarFestival},
	}
	for _, o := range optional {
		if o.value != "" {
			lines = append(lines, s.Translator.Msg(o.key, map[string]any{"Value": o.value}))
		}
	}

	return Content{Text: strings.Join(lines, "\n"), Details: d}, nil
}

func headlineKey(d engine.Details) string {
	today := d.DaysUntil == 0
	switch {
	case d.SolarMatch && d.LunarMatch && today:
		return config.TKeyTodayBoth
	case d.SolarMatch && d.LunarMatch:
		return config.TKeySoonBoth
	case d.SolarMatch && today:
		return config.TKeyTodaySolar
	case d.SolarMatch:
		return config.TKeySoonSolar
	case today:
		return config.TKeyTodayLunar
	default:
		return config.TKeySoonLunar
	}
}

// Send implements Sender. Transport errors and 5xx answers are retried; any
// other status or a non-zero code in the reply fails immediately.
func (s *ServerChanSender) Send(ctx context.Context, r config.Recipient, c Content, daysUntil, age int) error {
	logger := log.With().
		Str(config.LogKeyComponent, config.CompPush).
		Str(config.LogKeyName, r.Name).
		Logger()

	title := c.Subject
	if title == "" {
		title = s.Translator.Msg(config.TKeySubject, map[string]any{
			"Name": r.Name,
			"Age":  age,
			"Days": daysUntil,
		})
	}
	form := url.Values{}
	form.Set(config.FormTitle, title)
	form.Set(config.FormDesp, c.Text)
	endpoint := fmt.Sprintf(config.ServerChanPathFmt, s.BaseURL, url.PathEscape(s.Key))

	err := s.Retry.Do(ctx, logger, func() error {
		return s.post(ctx, endpoint, form)
	})
	if err != nil {
		logger.Error().Err(err).Msg(config.MsgSendFailed)
		return fmt.Errorf("%s: %w", config.ErrSend, err)
	}

	logger.Info().Msg(config.MsgSendOK)
	return nil
}

func (s *ServerChanSender) post(ctx context.Context, endpoint string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set(config.HeaderContentType, config.MimeForm)
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("network error during push: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxPushResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read push response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("%w: %d: %s", ErrPushStatus, resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode >= http.StatusInternalServerError {
			return statusErr
		}
		return Permanent(statusErr)
	}

	var reply pushResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		return Permanent(fmt.Errorf("%w: invalid JSON reply: %v", ErrPushRejected, err))
	}
	if reply.Code == nil || *reply.Code != 0 {
		log.Warn().
			Str(config.LogKeyComponent, config.CompPush).
			Str(config.LogKeyResponse, string(body)).
			Msg(config.MsgPushRejected)
		if reply.Code == nil {
			return Permanent(fmt.Errorf("%w: reply has no code: %s", ErrPushRejected, reply.Message))
		}
		return Permanent(fmt.Errorf("%w: code %d: %s", ErrPushRejected, *reply.Code, reply.Message))
	}
	return nil
}
