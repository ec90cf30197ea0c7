package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.aimuz.me/keysound/internal/app"
	"go.aimuz.me/keysound/keys"
)

// NewSettingsCommand creates the settings command. Without a subcommand it
// prints the current settings.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change engine settings",
		Args:  cobra.NoArgs,
		RunE: sceneAction(rootOpts, func(svc *app.Service, cmd *cobra.Command, _ []string) error {
			s := svc.Registry().Settings()
			out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			if out.json() {
				return out.emit(s)
			}
			out.linef("stop-key         %s", s.StopKey)
			out.linef("stop-on-unbound  %t", s.StopOnUnbound)
			out.linef("long-press       %t", s.LongPressOptimize)
			return nil
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stop-key <key>",
		Short: "Set the key that stops playback",
		Args:  cobra.ExactArgs(1),
		RunE: sceneAction(rootOpts, func(svc *app.Service, cmd *cobra.Command, args []string) error {
			key := keys.Normalize(args[0])
			if err := svc.Registry().SetStopKey(key); err != nil {
				return WrapExitError(ExitFailure, "failed to set stop key", err)
			}
			out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			return out.result("stop key is "+key, map[string]any{"stop_key": key})
		}),
	})

	cmd.AddCommand(boolSetting(rootOpts, "stop-on-unbound", "Stop playback when an unbound key is pressed",
		func(svc *app.Service, v bool) error { return svc.Registry().SetStopOnUnbound(v) }))
	cmd.AddCommand(boolSetting(rootOpts, "long-press", "Ignore key repeat while a key is held",
		func(svc *app.Service, v bool) error { return svc.Registry().SetLongPressOptimize(v) }))

	return cmd
}

func boolSetting(rootOpts *RootOptions, name, short string, set func(*app.Service, bool) error) *cobra.Command {
	return &cobra.Command{
		Use:       name + " <true|false>",
		Short:     short,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"true", "false"},
		RunE: sceneAction(rootOpts, func(svc *app.Service, cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseBool(args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "invalid value for "+name, err)
			}
			if err := set(svc, v); err != nil {
				return WrapExitError(ExitFailure, "failed to set "+name, err)
			}
			out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			return out.result(fmt.Sprintf("%s is %t", name, v), map[string]any{name: v})
		}),
	}
}
