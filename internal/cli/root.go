// Package cli implements the keysound command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"go.aimuz.me/keysound/config"
	"go.aimuz.me/keysound/internal/app"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	OptionsFile string
	LogLevel    string // overrides log.level when set
	Format      string // "text" | "json"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the keysound CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "keysound",
		Short: "Play sound clips from global key presses",
		Long: `keysound binds keys to sound clips. While it runs, pressing a bound key
plays its clip, the stop key halts playback and unbound keys can stop it too.

Bindings are grouped into scenes that can be switched, exported and imported.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.OptionsFile, "options", "", "options file (default: options.toml in the config dir)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewBindCommand(opts))
	cmd.AddCommand(NewUnbindCommand(opts))
	cmd.AddCommand(NewBindingsCommand(opts))
	cmd.AddCommand(NewSceneCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))

	return cmd
}

// serviceMode selects how much of the engine a command needs.
type serviceMode int

const (
	// modeDocument edits the document only; no sound is decoded.
	modeDocument serviceMode = iota
	// modeSounds also loads the sounds of the active scene.
	modeSounds
	// modeListen additionally opens the audio device.
	modeListen
)

// openService loads options, configures logging and builds the engine.
func openService(opts *RootOptions, cmd *cobra.Command, mode serviceMode) (*app.Service, error) {
	o, err := config.LoadOptions(opts.OptionsFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load options", err)
	}
	if opts.LogLevel != "" {
		o.Log.Level = opts.LogLevel
	}
	if err := setupLogging(cmd.ErrOrStderr(), o.Log.Level); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid log level", err)
	}
	if mode != modeListen {
		o.Audio.Enabled = false
	}
	var options []app.Option
	if mode == modeDocument {
		options = append(options, app.DocumentOnly())
	}

	svc, err := app.New(o, options...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open document", err)
	}
	return svc, nil
}

func setupLogging(w io.Writer, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return err
	}
	slog.SetDefault(slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	})))
	return nil
}
