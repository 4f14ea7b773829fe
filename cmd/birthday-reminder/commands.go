package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
	"github.com/tartampluch/go-birthday-reminder/internal/engine"
	"github.com/tartampluch/go-birthday-reminder/internal/notify"
	"github.com/tartampluch/go-birthday-reminder/internal/preview"
	"github.com/tartampluch/go-birthday-reminder/internal/server"
	"github.com/zalando/go-keyring"
)

func newRunCmd(a *app) *cobra.Command {
	var today string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   config.CmdRunUse,
		Short: config.CmdRunShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			clock, err := clockFor(a.clock, today)
			if err != nil {
				return err
			}

			logger := log.With().Str(config.LogKeyComponent, config.CompMain).Logger()
			logger.Info().Msg(config.MsgRunStarted)

			checker := engine.NewChecker()
			checker.Clock = clock
			matches := checker.Check(a.recipients(cmd.Context()))

			var found []engine.Match
			for _, m := range matches {
				if m.IsBirthday {
					found = append(found, m)
				}
			}
			if len(found) == 0 {
				logger.Info().Msg(config.MsgRunNoMatch)
				return nil
			}

			if dryRun {
				for _, m := range found {
					printUpcoming(cmd.OutOrStdout(), a, m)
				}
				logger.Info().Int(config.LogKeyMatches, len(found)).Msg(config.MsgDryRun)
				return nil
			}

			deps := a.deps
			deps.Translator = a.translator
			deps.Clock = clock
			dispatcher := &notify.Dispatcher{Senders: notify.BuildSenders(a.settings, deps)}
			report := dispatcher.Dispatch(cmd.Context(), found)

			logger.Info().
				Int(config.LogKeyMatches, report.Matched).
				Int(config.LogKeyCount, report.Sent).
				Int(config.LogKeyFailures, len(report.Failures)).
				Msg(config.MsgRunDone)
			return report.Err()
		},
	}
	cmd.Flags().StringVar(&today, config.FlagToday, "", config.FlagDescTdy)
	cmd.Flags().BoolVar(&dryRun, config.FlagDryRun, false, config.FlagDescDry)
	return cmd
}

func newPreviewCmd(a *app) *cobra.Command {
	var (
		serve    bool
		noOpen   bool
		port     string
		template string
	)

	cmd := &cobra.Command{
		Use:   config.CmdPreviewUse,
		Short: config.CmdPreviewShrt,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				if !errors.Is(err, config.ErrConfigRead) {
					return err
				}
				// Templates can be previewed before a configuration exists.
				a.useSettings(defaultSettings())
			}
			if serve {
				if err := checkPort(port); err != nil {
					return err
				}
			}

			renderer := notify.NewRenderer(os.DirFS(a.settings.TemplatesDir), config.DefaultLayout)
			p := preview.New(renderer, a.translator, a.clock)
			page, err := p.Build(template)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if serve {
				srv := server.NewPreviewServer(port)
				fmt.Fprintln(out, a.translator.Msg(config.TKeyPreviewServing, map[string]any{"URL": srv.URL()}))
				if !noOpen {
					if err := p.ShowURL(srv.URL()); err != nil {
						log.Warn().Str(config.LogKeyComponent, config.CompPreview).Err(err).Send()
					}
				}
				return p.Serve(cmd.Context(), srv, page)
			}

			path, err := p.Save(page)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, a.translator.Msg(config.TKeyPreviewSaved, map[string]any{"Path": path}))
			if !noOpen {
				if err := p.Show(path); err != nil {
					log.Warn().Str(config.LogKeyComponent, config.CompPreview).Err(err).Send()
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&serve, config.FlagServe, false, config.FlagDescSrv)
	cmd.Flags().BoolVar(&noOpen, config.FlagNoOpen, false, config.FlagDescNoO)
	cmd.Flags().StringVar(&port, config.FlagPort, config.DefaultPreviewPort, config.FlagDescPrt)
	cmd.Flags().StringVar(&template, config.FlagTmpl, "", config.FlagDescTpl)
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdValidUse,
		Short: config.CmdValidShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			if err := config.Validate(a.settings); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.translator.Msg(config.TKeyValidateOK, nil))
			return nil
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdInfoUse,
		Short: config.CmdInfoShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tr := a.translator

			fmt.Fprintln(out, tr.Msg(config.TKeyInfoChannels, map[string]any{
				"Value": strings.Join(a.settings.Channels, config.ChannelSeparator),
			}))
			fmt.Fprintln(out, tr.Msg(config.TKeyInfoLanguage, map[string]any{
				"Value":     tr.Language(),
				"Supported": strings.Join(tr.Supported(), config.ChannelSeparator),
			}))

			recipients := a.recipients(cmd.Context())
			fmt.Fprintln(out, tr.Msg(config.TKeyInfoRecipients, map[string]any{"Count": len(recipients)}))

			checker := engine.NewChecker()
			checker.Clock = a.clock
			for _, m := range checker.Check(recipients) {
				if m.IsBirthday {
					printUpcoming(out, a, m)
					continue
				}
				fmt.Fprintln(out, tr.Msg(config.TKeyInfoNone, map[string]any{"Name": m.Recipient.Name}))
			}
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var days int
	var out string

	cmd := &cobra.Command{
		Use:   config.CmdExportUse,
		Short: config.CmdExportShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			if days < 0 {
				return config.ErrNegativeDays
			}

			now := a.clock.Now()
			checker := engine.NewChecker()
			checker.Clock = a.clock

			var matches []engine.Match
			for _, r := range a.recipients(cmd.Context()) {
				if m := checker.Window(now, r, days); m.IsBirthday {
					matches = append(matches, m)
				}
			}

			data, err := engine.BuildCalendar(now, matches, func(m engine.Match) string {
				return notify.EventSummary(a.translator, m.Recipient.Name, m.Details.Age)
			})
			if err != nil {
				return err
			}

			if out == config.StdoutPath {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, config.FilePermPublic); err != nil {
				return fmt.Errorf("%s: %w", config.ErrExportWrite, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.translator.Msg(config.TKeyExportWritten, map[string]any{
				"Path":  out,
				"Count": len(matches),
			}))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, config.FlagDays, config.DefaultExportDays, config.FlagDescDys)
	cmd.Flags().StringVar(&out, config.FlagOut, config.ICalFileName, config.FlagDescOut)
	return cmd
}

func newSecretCmd(a *app) *cobra.Command {
	secret := &cobra.Command{
		Use:   config.CmdSecretUse,
		Short: config.CmdSecretShort,
	}
	secret.AddCommand(&cobra.Command{
		Use:   config.CmdSetUse,
		Short: config.CmdSetShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := args[0]
			pass, err := readSecret(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := keyring.Set(config.KeyringService, user, pass); err != nil {
				return fmt.Errorf("%s: %w", config.ErrKeyring, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.tr().Msg(config.TKeySecretStored, map[string]any{"User": user}))
			return nil
		},
	})
	return secret
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdVersionUse,
		Short: config.CmdVersionShrt,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), config.MsgVersionOutput,
				config.AppName,
				config.Version,
				config.Commit,
				config.Date,
				runtime.GOOS,
				runtime.GOARCH,
			)
		},
	}
}

// clockFor pins the clock to the --today date when one is given.
func clockFor(base engine.Clock, today string) (engine.Clock, error) {
	if today == "" {
		return base, nil
	}
	t, err := time.ParseInLocation(config.DateLayout, today, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", config.ErrInvalidToday, today, err)
	}
	return engine.FixedClock{Time: t}, nil
}

func checkPort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil || n < config.MinPort || n > config.MaxPort {
		return fmt.Errorf("%s: %q", config.ErrInvalidPort, port)
	}
	return nil
}

// readSecret reads the first line of r, so the password never appears in argv.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New(config.ErrSecretEmpty)
	}
	return line, nil
}

func printUpcoming(w io.Writer, a *app, m engine.Match) {
	fmt.Fprintln(w, a.translator.Msg(config.TKeyInfoUpcoming, map[string]any{
		"Name": m.Recipient.Name,
		"Days": m.Details.DaysUntil,
	}))
}

// defaultSettings is used by preview when no configuration file exists.
func defaultSettings() *config.Settings {
	return &config.Settings{
		Channels:     []string{config.DefaultChannel},
		Language:     config.DefaultLanguage,
		TemplatesDir: config.DefaultTemplatesDir,
		Log: config.LogConfig{
			Level:  config.DefaultLogLevel,
			Format: config.DefaultLogFormat,
		},
	}
}
