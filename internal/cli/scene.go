package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.aimuz.me/keysound/internal/app"
)

// NewSceneCommand creates the scene command group.
func NewSceneCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scene",
		Short: "Manage scenes",
	}

	cmd.AddCommand(newSceneListCommand(rootOpts))
	cmd.AddCommand(newSceneAddCommand(rootOpts))
	cmd.AddCommand(newSceneRemoveCommand(rootOpts))
	cmd.AddCommand(newSceneSwitchCommand(rootOpts))
	cmd.AddCommand(newSceneExportCommand(rootOpts))
	cmd.AddCommand(newSceneImportCommand(rootOpts))

	return cmd
}

// sceneAction opens the service for document edits, runs fn and closes the
// service again.
func sceneAction(rootOpts *RootOptions, fn func(svc *app.Service, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		svc, err := openService(rootOpts, cmd, modeDocument)
		if err != nil {
			return err
		}
		defer svc.Shutdown()
		return fn(svc, cmd, args)
	}
}

func newSceneListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List scenes",
		Args:    cobra.NoArgs,
		RunE: sceneAction(rootOpts, func(svc *app.Service, cmd *cobra.Command, _ []string) error {
			scenes := svc.Registry().Scenes()
			out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			if out.json() {
				return out.emit(scenes)
			}
			for _, s := range scenes {
				mark := " "
				if s.Current {
					mark = "*"
				}
				out.linef("%s %-12s %-24s %d bindings", mark, s.ID, s.Name, s.Bindings)
			}
			return nil
		}),
	}
}

func newSceneAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> [id]",
		Short: "Create an empty scene and switch to it",
		Long: `Create an empty scene and make it the active scene. Without an id the
next free scene_<n> id is used.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: sceneAction(rootOpts, func(svc *app.Service, cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return WrapExitError(ExitFailure, "scene name is required", nil)
			}
			id := svc.Registry().NextSceneID()
			if len(args) == 2 {
				id = args[1]
			}
			if err := svc.Registry().AddScene(id, name); err != nil {
				return WrapExitError(ExitFailure, "failed to add scene", err)
			}
			out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			return out.result(fmt.Sprintf("added scene %s (%s)", id, name), map[string]any{"id": id, "name": name})
		}),
	}
}

func newSceneRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a scene",
		Args:    cobra.ExactArgs(1),
		RunE: sceneAction(rootOpts, func(svc *app.Service, cmd *cobra.Command, args []string) error {
			if err := svc.Registry().RemoveScene(args[0]); err != nil {
				return WrapExitError(ExitFailure, "failed to remove scene", err)
			}
			current := svc.Registry().Current()
			out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			return out.result(fmt.Sprintf("removed scene %s, active scene is %s", args[0], current),
				map[string]any{"id": args[0], "current": current})
		}),
	}
}

func newSceneSwitchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <id>",
		Short: "Make a scene the active scene",
		Args:  cobra.ExactArgs(1),
		RunE: sceneAction(rootOpts, func(svc *app.Service, cmd *cobra.Command, args []string) error {
			if err := svc.Registry().SwitchScene(args[0]); err != nil {
				return WrapExitError(ExitFailure, "failed to switch scene", err)
			}
			out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			return out.result("switched to scene "+args[0], map[string]any{"current": args[0]})
		}),
	}
}

func newSceneExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <id> <file>",
		Short: "Write a scene to a file (- for stdout)",
		Args:  cobra.ExactArgs(2),
		RunE: sceneAction(rootOpts, func(svc *app.Service, cmd *cobra.Command, args []string) error {
			err := writeOutput(args[1], cmd.OutOrStdout(), func(w io.Writer) error {
				return svc.Registry().ExportScene(args[0], w)
			})
			if err != nil {
				return WrapExitError(ExitFailure, "failed to export scene", err)
			}
			if args[1] == "-" {
				return nil
			}
			out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			return out.result(fmt.Sprintf("exported scene %s to %s", args[0], args[1]),
				map[string]any{"id": args[0], "file": args[1]})
		}),
	}
}

func newSceneImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add a scene from a file (- for stdin)",
		Long: `Add the scene stored in an exported scene file under a new id. The active
scene does not change.`,
		Args: cobra.ExactArgs(1),
		RunE: sceneAction(rootOpts, func(svc *app.Service, cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0], cmd.InOrStdin())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to open scene file", err)
			}
			defer in.Close()

			id, err := svc.Registry().ImportScene(in)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to import scene", err)
			}
			out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			return out.result("imported scene "+id, map[string]any{"id": id})
		}),
	}
}
