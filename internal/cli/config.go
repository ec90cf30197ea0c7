package cli

import (
	"github.com/spf13/cobra"
	"go.aimuz.me/keysound/internal/app"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Export or replace the whole configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "export <file>",
		Short: "Write every scene and setting to a file (- for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE: sceneAction(rootOpts, func(svc *app.Service, cmd *cobra.Command, args []string) error {
			err := writeOutput(args[0], cmd.OutOrStdout(), svc.Registry().ExportConfig)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to export config", err)
			}
			if args[0] == "-" {
				return nil
			}
			out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			return out.result("exported config to "+args[0], map[string]any{"file": args[0]})
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Replace every scene and setting from a file (- for stdin)",
		Long: `Replace every scene and setting with an exported configuration. The file
must contain current_scene, scenes, stop_key, stop_on_unbound and
long_press_optimize; otherwise nothing changes.`,
		Args: cobra.ExactArgs(1),
		RunE: sceneAction(rootOpts, func(svc *app.Service, cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0], cmd.InOrStdin())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to open config file", err)
			}
			defer in.Close()

			if err := svc.Registry().ImportConfig(in); err != nil {
				return WrapExitError(ExitFailure, "failed to import config", err)
			}
			out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			return out.result("imported config, active scene is "+svc.Registry().Current(),
				map[string]any{"current": svc.Registry().Current(), "scenes": len(svc.Registry().Scenes())})
		}),
	})

	return cmd
}
