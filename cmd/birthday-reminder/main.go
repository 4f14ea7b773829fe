package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
	"github.com/tartampluch/go-birthday-reminder/internal/engine"
	"github.com/tartampluch/go-birthday-reminder/internal/locale"
	"github.com/tartampluch/go-birthday-reminder/internal/logger"
	"github.com/tartampluch/go-birthday-reminder/internal/notify"
	"github.com/zalando/go-keyring"
)

// main is the application entry point.
// It delegates execution to runMain to ensure that deferred function calls
// (like closing log files) are executed before the process terminates.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle and maps errors to exit codes.
func runMain() int {
	// Console logging until the configuration says otherwise.
	logger.New(config.DefaultLogLevel, config.DefaultLogFormat).SetGlobal()

	// Create a root context that cancels on SIGINT (Ctrl+C) or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := newApp()
	defer a.close()

	start := time.Now()
	err := newRootCmd(a).ExecuteContext(ctx)
	log.Info().
		Str(config.LogKeyComponent, config.CompMain).
		Int64(config.LogKeyDuration, time.Since(start).Milliseconds()).
		Msg(config.MsgAppStop)
	if err != nil {
		log.Error().
			Str(config.LogKeyComponent, config.CompMain).
			Err(err).
			Msg(config.ErrAppFailed)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return config.ExitCodeError
	}
	return config.ExitCodeSuccess
}

// app holds the state shared by the commands of one invocation.
type app struct {
	configPath string
	debug      bool
	lang       string

	// Collaborators, replaced in tests.
	clock   engine.Clock
	fetcher engine.VCardFetcher
	deps    notify.Deps

	settings   *config.Settings
	translator *locale.Translator
	closers    []io.Closer
}

func newApp() *app {
	return &app{
		configPath: config.ConfigFileName,
		clock:      engine.RealClock{},
		fetcher:    engine.NewHTTPFetcher(),
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           config.CmdRootUse,
		Short:         config.CmdRootShort,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, config.FlagConfig, "c", a.configPath, config.FlagDescCfg)
	root.PersistentFlags().BoolVar(&a.debug, config.FlagDebug, false, config.FlagDescDbg)
	root.PersistentFlags().StringVar(&a.lang, config.FlagLang, "", config.FlagDescLng)

	root.AddCommand(
		newRunCmd(a),
		newPreviewCmd(a),
		newValidateCmd(a),
		newInfoCmd(a),
		newExportCmd(a),
		newSecretCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration, switches logging to the configured sinks and
// resolves secrets from the keyring.
func (a *app) setup() error {
	s, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.useSettings(s)
	return nil
}

func (a *app) useSettings(s *config.Settings) {
	level := s.Log.Level
	if a.debug {
		level = "debug"
	}

	var files []io.Writer
	if s.Log.File != "" {
		f, err := logger.OpenFile(s.Log.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, s.Log.File, err)
		} else {
			files = append(files, f)
			a.closers = append(a.closers, f)
		}
	}
	logger.New(level, s.Log.Format, files...).WithRunID(uuid.NewString()).SetGlobal()
	logStartupInfo()

	if a.lang != "" {
		s.Language = a.lang
	}
	resolveSecrets(s)

	a.settings = s
	a.translator = locale.New(s.Language)
}

// tr returns the translator for commands that may run without a configuration.
func (a *app) tr() *locale.Translator {
	if a.translator == nil {
		a.translator = locale.New(a.lang)
	}
	return a.translator
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
	a.closers = nil
}

// resolveSecrets fills passwords left empty in the file and the environment
// from the OS keyring, keyed by username.
func resolveSecrets(s *config.Settings) {
	if s.SMTP != nil && s.SMTP.Password == "" && s.SMTP.Username != "" {
		s.SMTP.Password = lookupSecret(s.SMTP.Username)
	}
	if s.Contacts != nil && s.Contacts.Password == "" && s.Contacts.Username != "" {
		s.Contacts.Password = lookupSecret(s.Contacts.Username)
	}
}

func lookupSecret(user string) string {
	logger := log.With().
		Str(config.LogKeyComponent, config.CompConfig).
		Str(config.LogKeyUser, user).
		Logger()

	pass, err := keyring.Get(config.KeyringService, user)
	switch {
	case err == nil:
		logger.Info().Msg(config.MsgPassFromRing)
		return pass
	case errors.Is(err, keyring.ErrNotFound):
		return ""
	default:
		logger.Warn().Err(err).Msg(config.ErrKeyring)
		return ""
	}
}

// recipients returns the configured recipients followed by the ones imported
// from the contacts source. An unreachable source is logged and skipped so that
// the static list is still served.
func (a *app) recipients(ctx context.Context) []config.Recipient {
	s := a.settings
	out := append([]config.Recipient(nil), s.Recipients...)
	if s.Contacts == nil {
		return out
	}

	loader := &engine.ContactsLoader{Fetcher: a.fetcher}
	imported, err := loader.Load(ctx, *s.Contacts)
	if err != nil {
		log.Warn().
			Str(config.LogKeyComponent, config.CompContacts).
			Err(err).
			Msg(config.MsgContactsFailed)
		return out
	}

	for _, r := range imported {
		if r.Email == "" && s.SMTP != nil {
			r.Email = s.SMTP.DefaultReceiveEmail
		}
		out = append(out, r)
	}
	return out
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	log.Info().
		Str(config.LogKeyComponent, config.CompMain).
		Str(config.LogKeyApp, config.AppName).
		Str(config.LogKeyVersion, config.Version).
		Str(config.LogKeyGoVer, runtime.Version()).
		Str(config.LogKeyOS, runtime.GOOS).
		Str(config.LogKeyArch, runtime.GOARCH).
		Int(config.LogKeyPID, os.Getpid()).
		Msg(config.MsgAppStarting)
}
