package locale

import (
	"embed"
	"encoding/json"
	"slices"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/rs/zerolog/log"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator renders user-facing strings (push text, subjects, CLI output)
// in the configured language.
type Translator struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	lang      string
	supported []string
}

// New loads every embedded locale and selects lang. A language without a
// locale file falls back to config.DefaultLanguage.
func New(lang string) *Translator {
	bundle := i18n.NewBundle(language.Chinese)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	logger := log.With().Str(config.LogKeyComponent, config.CompI18n).Logger()

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		logger.Error().Err(err).Msg(config.ErrLocalesAccess)
	}

	var detected []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			logger.Debug().Str(config.LogKeyFile, name).Msg(config.MsgLocaleSkip)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if langCode == "" {
			logger.Warn().Str(config.LogKeyFile, name).Msg(config.MsgLocaleBadName)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			logger.Error().Str(config.LogKeyFile, name).Err(err).Msg(config.ErrLocaleLoad)
			continue
		}
		detected = append(detected, langCode)
		logger.Debug().Str(config.LogKeyLang, langCode).Str(config.LogKeyFile, name).Msg(config.MsgLocaleLoaded)
	}

	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = config.DefaultLanguage
	} else if !slices.Contains(detected, lang) {
		logger.Warn().Str(config.LogKeyLang, lang).Msg(config.MsgLocaleFallback)
		lang = config.DefaultLanguage
	}
	return &Translator{
		bundle:    bundle,
		localizer: i18n.NewLocalizer(bundle, lang),
		lang:      lang,
		supported: detected,
	}
}

// Language returns the language code messages are rendered in.
func (t *Translator) Language() string {
	return t.lang
}

// Supported lists the language codes found in the embedded locales.
func (t *Translator) Supported() []string {
	return t.supported
}

// Msg translates key with template data. Missing keys return the key itself.
func (t *Translator) Msg(key string, data map[string]any) string {
	if t == nil || t.localizer == nil {
		return key
	}
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		log.Debug().
			Str(config.LogKeyComponent, config.CompI18n).
			Str(config.LogKeyKey, key).
			Err(err).
			Msg(config.MsgTransMissing)
		return key
	}
	return msg
}
