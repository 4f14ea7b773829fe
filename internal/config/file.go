package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	// ErrConfigRead is returned when the configuration file is missing or is not valid YAML.
	ErrConfigRead = errors.New("failed to read config file")
	// ErrConfigDecode is returned when the YAML document does not match the expected shape.
	ErrConfigDecode = errors.New("failed to decode config")
	// ErrNoBirthday is returned for a recipient with neither a solar nor a lunar birthday.
	ErrNoBirthday = errors.New("at least one of solar_birthday or lunar_birthday must be provided")
	// ErrNoName is returned for a recipient without a name.
	ErrNoName = errors.New("recipient name is required")
	// ErrNegativeDays is returned when reminder_days is below zero.
	ErrNegativeDays = errors.New("reminder_days must not be negative")
)

// Settings is the fully resolved configuration of one run.
type Settings struct {
	// Channels is the ordered, de-duplicated list from notification.type.
	Channels     []string
	Language     string
	SMTP         *SMTPConfig
	ServerChan   *ServerChanConfig
	Retry        RetryConfig
	TemplatesDir string
	Log          LogConfig
	Contacts     *ContactsConfig
	Recipients   []Recipient
	// Path is the file the settings were read from.
	Path string
}

// SMTPConfig holds the outgoing mail server and the per-recipient email defaults.
type SMTPConfig struct {
	Host                string
	Port                int
	Username            string
	Password            string
	UseTLS              bool
	FromName            string
	DefaultReceiveEmail string
	DefaultTemplateFile string
	DefaultReminderDays int
}

// ServerChanConfig holds the push service key and its reminder default.
type ServerChanConfig struct {
	Key                 string
	BaseURL             string
	DefaultReminderDays int
}

// RetryConfig bounds the exponential backoff used by senders.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ContactsConfig describes an optional vCard source merged into the recipient list.
type ContactsConfig struct {
	Source       string `mapstructure:"source"` // ContactsSourceLocal or ContactsSourceWeb
	Path         string `mapstructure:"path"`
	URL          string `mapstructure:"url"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	ReminderDays int    `mapstructure:"reminder_days"`
	TemplateFile string `mapstructure:"template_file"`
}

// fileLayout mirrors the YAML document. Pointers distinguish "absent" from "zero"
// so channel defaults only fill keys the user left out.
type fileLayout struct {
	Notification struct {
		Type       string      `mapstructure:"type"`
		Language   string      `mapstructure:"language"`
		SMTP       *smtpLayout `mapstructure:"smtp"`
		ServerChan *pushLayout `mapstructure:"serverchan"`
		Retry      RetryConfig `mapstructure:"retry"`
	} `mapstructure:"notification"`
	TemplatesDir string            `mapstructure:"templates_dir"`
	Log          LogConfig         `mapstructure:"log"`
	Contacts     *ContactsConfig   `mapstructure:"contacts"`
	Recipients   []recipientLayout `mapstructure:"recipients"`
}

type smtpLayout struct {
	Host                string `mapstructure:"host"`
	Port                int    `mapstructure:"port"`
	Username            string `mapstructure:"username"`
	Password            string `mapstructure:"password"`
	UseTLS              *bool  `mapstructure:"use_tls"`
	FromName            string `mapstructure:"from_name"`
	DefaultReceiveEmail string `mapstructure:"default_receive_email"`
	DefaultTemplateFile string `mapstructure:"default_template_file"`
	DefaultReminderDays int    `mapstructure:"default_reminder_days"`
}

type pushLayout struct {
	DefaultSCKey        string `mapstructure:"default_sckey"`
	BaseURL             string `mapstructure:"base_url"`
	DefaultReminderDays int    `mapstructure:"default_reminder_days"`
}

type recipientLayout struct {
	Name          string  `mapstructure:"name"`
	Email         *string `mapstructure:"email"`
	SolarBirthday string  `mapstructure:"solar_birthday"`
	LunarBirthday string  `mapstructure:"lunar_birthday"`
	ReminderDays  *int    `mapstructure:"reminder_days"`
	TemplateFile  *string `mapstructure:"template_file"`
}

// Load reads the YAML configuration at path, applies environment overrides
// (BIRTHDAY_NOTIFICATION_SMTP_PASSWORD, ...) and channel defaults, and builds
// the recipient list. Any error is fatal for the run.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = ConfigFileName
	}
	logger := log.With().Str(LogKeyComponent, CompConfig).Str(LogKeyFile, path).Logger()
	logger.Info().Msg(MsgConfigLoading)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfigRead, path, err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Secrets are usually injected by the external trigger rather than written to disk.
	_ = v.BindEnv("notification.smtp.password")
	_ = v.BindEnv("notification.serverchan.default_sckey")
	_ = v.BindEnv("contacts.password")

	var layout fileLayout
	if err := v.Unmarshal(&layout, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		timeToDateHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigDecode, err)
	}

	s, err := layout.resolve()
	if err != nil {
		return nil, err
	}
	s.Path = path

	logger.Info().
		Strs(LogKeyChannels, s.Channels).
		Int(LogKeyCount, len(s.Recipients)).
		Msg(MsgConfigLoaded)
	return s, nil
}

// timeToDateHookFunc turns the time.Time the YAML decoder produces for an
// unquoted 1990-01-01 back into DateLayout text.
func timeToDateHookFunc() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if to.Kind() != reflect.String {
			return data, nil
		}
		if t, ok := data.(time.Time); ok {
			return t.Format(DateLayout), nil
		}
		return data, nil
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("notification.type", DefaultChannel)
	v.SetDefault("notification.language", DefaultLanguage)

	v.SetDefault("notification.retry.max_attempts", DefaultRetryAttempts)
	v.SetDefault("notification.retry.initial_delay", DefaultRetryDelay)
	v.SetDefault("notification.retry.multiplier", DefaultRetryMultiplier)

	v.SetDefault("templates_dir", DefaultTemplatesDir)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.file", LogFileName)
}

func (l fileLayout) resolve() (*Settings, error) {
	s := &Settings{
		Channels:     ParseChannels(l.Notification.Type),
		Language:     l.Notification.Language,
		Retry:        l.Notification.Retry,
		TemplatesDir: l.TemplatesDir,
		Log:          l.Log,
		Contacts:     l.Contacts,
	}

	if sm := l.Notification.SMTP; sm != nil {
		s.SMTP = &SMTPConfig{
			Host:                sm.Host,
			Port:                sm.Port,
			Username:            sm.Username,
			Password:            sm.Password,
			UseTLS:              true,
			FromName:            sm.FromName,
			DefaultReceiveEmail: sm.DefaultReceiveEmail,
			DefaultTemplateFile: sm.DefaultTemplateFile,
			DefaultReminderDays: sm.DefaultReminderDays,
		}
		if sm.UseTLS != nil {
			s.SMTP.UseTLS = *sm.UseTLS
		}
		if s.SMTP.Port == 0 {
			s.SMTP.Port = DefaultSMTPPort
		}
		if s.SMTP.DefaultTemplateFile == "" {
			s.SMTP.DefaultTemplateFile = DefaultTemplateFile
		}
	}

	if sc := l.Notification.ServerChan; sc != nil {
		s.ServerChan = &ServerChanConfig{
			Key:                 sc.DefaultSCKey,
			BaseURL:             strings.TrimRight(sc.BaseURL, "/"),
			DefaultReminderDays: sc.DefaultReminderDays,
		}
		if s.ServerChan.BaseURL == "" {
			s.ServerChan.BaseURL = DefaultServerChanURL
		}
	}

	if s.Retry.MaxAttempts < 1 {
		s.Retry.MaxAttempts = 1
	}
	if s.Retry.Multiplier < 1 {
		s.Retry.Multiplier = 1
	}

	for i, raw := range l.Recipients {
		r, err := NewRecipient(s.applyDefaults(raw))
		if err != nil {
			return nil, fmt.Errorf("recipients[%d] (%q): %w", i, raw.Name, err)
		}
		s.Recipients = append(s.Recipients, r)
	}
	return s, nil
}

// applyDefaults fills the keys a recipient left out. Email defaults win over
// push defaults for reminder_days, matching the order channels are declared in.
func (s *Settings) applyDefaults(raw recipientLayout) Recipient {
	r := Recipient{
		Name:          strings.TrimSpace(raw.Name),
		SolarBirthday: strings.TrimSpace(raw.SolarBirthday),
		LunarBirthday: strings.TrimSpace(raw.LunarBirthday),
		ReminderDays:  DefaultReminderDays,
	}
	if raw.Email != nil {
		r.Email = strings.TrimSpace(*raw.Email)
	}
	if raw.TemplateFile != nil {
		r.TemplateFile = *raw.TemplateFile
	}

	daysSet := raw.ReminderDays != nil
	if daysSet {
		r.ReminderDays = *raw.ReminderDays
	}

	if s.SMTP != nil {
		if raw.Email == nil && s.SMTP.DefaultReceiveEmail != "" {
			r.Email = s.SMTP.DefaultReceiveEmail
		}
		if !daysSet {
			r.ReminderDays = s.SMTP.DefaultReminderDays
			daysSet = true
		}
		if raw.TemplateFile == nil {
			r.TemplateFile = s.SMTP.DefaultTemplateFile
		}
	}
	if s.ServerChan != nil && !daysSet {
		r.ReminderDays = s.ServerChan.DefaultReminderDays
	}
	if r.TemplateFile == "" {
		r.TemplateFile = DefaultTemplateFile
	}
	return r
}

// ParseChannels splits a comma-separated channel list, trimming blanks and duplicates.
func ParseChannels(list string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(list, ChannelSeparator) {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// HasChannel reports whether the named channel is enabled.
func (s *Settings) HasChannel(name string) bool {
	for _, c := range s.Channels {
		if c == name {
			return true
		}
	}
	return false
}
