package notify

import (
	"io/fs"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
	"github.com/tartampluch/go-birthday-reminder/internal/engine"
	"github.com/tartampluch/go-birthday-reminder/internal/locale"
)

// Deps are the collaborators shared by every sender of a run.
type Deps struct {
	Translator *locale.Translator
	Clock      engine.Clock
	// Templates overrides the templates_dir filesystem (tests, embedded sets).
	Templates fs.FS
	// HTTPClient overrides the push client.
	HTTPClient *http.Client
	// Transport overrides the SMTP session factory.
	Transport func(cfg config.SMTPConfig) (MailTransport, error)
}

// BuildSenders creates one sender per configured channel, in configuration
// order. Unknown channels and channels without configuration are logged and
// skipped.
func BuildSenders(s *config.Settings, deps Deps) []Sender {
	logger := log.With().Str(config.LogKeyComponent, config.CompNotify).Logger()

	if deps.Translator == nil {
		deps.Translator = locale.New(s.Language)
	}
	templates := deps.Templates
	if templates == nil {
		templates = os.DirFS(s.TemplatesDir)
	}
	retry := PolicyFrom(s.Retry)

	var senders []Sender
	for _, channel := range s.Channels {
		switch {
		case channel == config.ChannelEmail && s.SMTP != nil:
			email := NewEmailSender(*s.SMTP, NewRenderer(templates, config.DefaultLayout), deps.Translator, retry, deps.Clock)
			if deps.Transport != nil {
				email.NewTransport = deps.Transport
			}
			senders = append(senders, email)
		case channel == config.ChannelServerChan && s.ServerChan != nil && s.ServerChan.Key != "":
			push := NewServerChanSender(*s.ServerChan, deps.Translator, retry)
			if deps.HTTPClient != nil {
				push.Client = deps.HTTPClient
			}
			senders = append(senders, push)
		default:
			logger.Warn().Str(config.LogKeyChannel, channel).Msg(config.MsgSenderSkipped)
			continue
		}
		logger.Info().Str(config.LogKeyChannel, channel).Msg(config.MsgSenderCreated)
	}
	return senders
}
