package notify

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
	"github.com/tartampluch/go-birthday-reminder/internal/engine"
	"github.com/tartampluch/go-birthday-reminder/internal/locale"
	"github.com/wneessen/go-mail"
)

// MailTransport delivers built messages. *mail.Client satisfies it.
type MailTransport interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailSender renders templates to HTML and delivers them over SMTP.
type EmailSender struct {
	SMTP       config.SMTPConfig
	Renderer   *Renderer
	Translator *locale.Translator
	Retry      RetryPolicy
	Clock      engine.Clock

	// NewTransport opens a fresh SMTP session per send. Defaults to DialSMTP.
	NewTransport func(cfg config.SMTPConfig) (MailTransport, error)
}

// NewEmailSender wires an EmailSender with the SMTP transport.
func NewEmailSender(smtp config.SMTPConfig, renderer *Renderer, tr *locale.Translator, retry RetryPolicy, clock engine.Clock) *EmailSender {
	return &EmailSender{
		SMTP:         smtp,
		Renderer:     renderer,
		Translator:   tr,
		Retry:        retry,
		Clock:        clock,
		NewTransport: DialSMTP,
	}
}

// DialSMTP builds a go-mail client. use_tls selects implicit TLS (SMTPS);
// otherwise STARTTLS is used when the server offers it.
func DialSMTP(cfg config.SMTPConfig) (MailTransport, error) {
	opts := []mail.Option{mail.WithTimeout(config.SMTPTimeout)}
	if cfg.UseTLS {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}
	opts = append(opts, mail.WithPort(cfg.Port))
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	return mail.NewClient(cfg.Host, opts...)
}

// Name implements Sender.
func (s *EmailSender) Name() string {
	return config.ChannelEmail
}

// Render implements Sender.
func (s *EmailSender) Render(name, template string, d engine.Details) (Content, error) {
	if template == "" {
		template = s.SMTP.DefaultTemplateFile
	}
	c, err := s.Renderer.Render(template, TemplateData{Name: name, Details: d})
	if err != nil {
		log.Error().
			Str(config.LogKeyComponent, config.CompEmail).
			Str(config.LogKeyFile, template).
			Err(err).
			Msg(config.ErrRender)
		return Content{}, err
	}
	return c, nil
}

// Send implements Sender. Every SMTP failure is retried; a recipient without
// an address fails immediately.
func (s *EmailSender) Send(ctx context.Context, r config.Recipient, c Content, daysUntil, age int) error {
	logger := log.With().
		Str(config.LogKeyComponent, config.CompEmail).
		Str(config.LogKeyName, r.Name).
		Str(config.LogKeyEmail, r.Email).
		Logger()

	if r.Email == "" {
		return ErrNoAddress
	}

	err := s.Retry.Do(ctx, logger, func() error {
		msg, err := s.buildMessage(r, c, daysUntil, age)
		if err != nil {
			return Permanent(err)
		}
		transport, err := s.NewTransport(s.SMTP)
		if err != nil {
			return err
		}
		return transport.DialAndSendWithContext(ctx, msg)
	})
	if err != nil {
		logger.Error().Err(err).Msg(config.MsgSendFailed)
		return fmt.Errorf("%s to %s: %w", config.ErrSend, r.Email, err)
	}

	logger.Info().Msg(config.MsgEmailSent)
	return nil
}

func (s *EmailSender) buildMessage(r config.Recipient, c Content, daysUntil, age int) (*mail.Msg, error) {
	subject := c.Subject
	if subject == "" {
		subject = s.Translator.Msg(config.TKeySubject, map[string]any{
			"Name": r.Name,
			"Age":  age,
			"Days": daysUntil,
		})
	}

	msg := mail.NewMsg()
	from := s.SMTP.Username
	if s.SMTP.FromName != "" {
		if err := msg.FromFormat(s.SMTP.FromName, from); err != nil {
			return nil, fmt.Errorf("%s: from: %w", config.ErrSend, err)
		}
	} else if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("%s: from: %w", config.ErrSend, err)
	}
	if err := msg.To(r.Email); err != nil {
		return nil, fmt.Errorf("%s: to: %w", config.ErrSend, err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextHTML, c.HTML)
	if c.Text != "" {
		msg.AddAlternativeString(mail.TypeTextPlain, c.Text)
	}

	if !c.Details.Date.IsZero() {
		if err := s.attachEvent(msg, r, c.Details, age); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// attachEvent adds the birthday as an .ics file so it can be saved to a calendar.
func (s *EmailSender) attachEvent(msg *mail.Msg, r config.Recipient, d engine.Details, age int) error {
	match := engine.Match{Recipient: r, IsBirthday: true, Details: d}
	ics, err := engine.BuildCalendar(s.now(), []engine.Match{match}, func(m engine.Match) string {
		return EventSummary(s.Translator, m.Recipient.Name, age)
	})
	if err != nil {
		return err
	}
	return msg.AttachReader(config.ICalFileName, bytes.NewReader(ics),
		mail.WithFileContentType(mail.ContentType(config.MimeICS)))
}

func (s *EmailSender) now() time.Time {
	if s.Clock == nil {
		return engine.RealClock{}.Now()
	}
	return s.Clock.Now()
}

// EventSummary is the localised calendar title for a birthday.
func EventSummary(tr *locale.Translator, name string, age int) string {
	if age > 0 {
		return tr.Msg(config.TKeyEvtSummaryAge, map[string]any{"Name": name, "Age": age})
	}
	return tr.Msg(config.TKeyEvtSummary, map[string]any{"Name": name})
}
