package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.aimuz.me/keysound/internal/app"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Scene string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Listen for key presses and play bound sounds",
		Long: `Install a global keyboard hook and play the sound bound to each key press
in the active scene until interrupted.

Example:
  keysound run
  keysound run --scene scene_1 --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListen(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Scene, "scene", "", "switch to this scene before listening")

	return cmd
}

func runListen(opts *RunOptions, cmd *cobra.Command) error {
	svc, err := openService(opts.RootOptions, cmd, modeListen)
	if err != nil {
		return err
	}
	defer svc.Shutdown()

	if opts.Scene != "" {
		if err := svc.Registry().SwitchScene(opts.Scene); err != nil {
			return WrapExitError(ExitFailure, "failed to switch scene", err)
		}
	}
	for key, err := range svc.Registry().Warnings() {
		slog.Warn("key has no playable sound", "key", key, "error", err)
	}

	out := printer{format: opts.Format, w: cmd.OutOrStdout()}
	svc.Subscribe(app.Emitter(func(name string, data any) {
		if name != app.EventStatusChanged {
			return
		}
		if out.json() {
			_ = out.emit(map[string]any{"event": name, "status": data})
			return
		}
		out.linef("%v", data)
	}))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.StartListening(); err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	slog.Info("listening", "scene", svc.Registry().Current(), "stop_key", svc.Registry().Settings().StopKey)

	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}
