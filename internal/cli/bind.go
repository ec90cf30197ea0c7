package cli

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
	"go.aimuz.me/keysound/catalog"
	"go.aimuz.me/keysound/keys"
)

// NewBindCommand creates the bind command.
func NewBindCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bind <key> <sound-file>",
		Short: "Bind a key to a sound in the active scene",
		Long: `Bind a key to a sound file in the active scene, replacing any previous
binding. The binding is saved even if the file cannot be played yet; a
warning is printed in that case.

Example:
  keysound bind F1 ~/sounds/applause.mp3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(rootOpts, cmd, modeSounds)
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			key := keys.Normalize(args[0])
			out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}

			err = svc.Registry().AddBinding(key, args[1])
			var loadErr *catalog.LoadError
			switch {
			case errors.As(err, &loadErr):
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", loadErr.Err)
			case err != nil:
				return WrapExitError(ExitFailure, "failed to bind "+key, err)
			}
			if !keys.Known(key) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s is not a known key name\n", key)
			}

			return out.result(fmt.Sprintf("bound %s -> %s", key, args[1]), map[string]any{
				"key":      key,
				"path":     args[1],
				"playable": loadErr == nil,
			})
		},
	}
}

// NewUnbindCommand creates the unbind command.
func NewUnbindCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unbind <key>",
		Short: "Remove a key binding from the active scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(rootOpts, cmd, modeDocument)
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			key := keys.Normalize(args[0])
			if err := svc.Registry().RemoveBinding(key); err != nil {
				return WrapExitError(ExitFailure, "failed to unbind "+key, err)
			}
			out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			return out.result("unbound "+key, map[string]any{"key": key})
		},
	}
}

type bindingView struct {
	Key      string `json:"key"`
	Path     string `json:"path"`
	Playable bool   `json:"playable"`
	Error    string `json:"error,omitempty"`
}

// NewBindingsCommand creates the bindings command.
func NewBindingsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bindings",
		Short: "List the bindings of the active scene",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(rootOpts, cmd, modeSounds)
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			reg := svc.Registry()
			bindings := reg.Bindings()
			warnings := reg.Warnings()

			views := make([]bindingView, 0, len(bindings))
			for _, key := range slices.Sorted(maps.Keys(bindings)) {
				v := bindingView{Key: key, Path: bindings[key], Playable: true}
				if err := warnings[key]; err != nil {
					v.Playable = false
					v.Error = err.Error()
				}
				views = append(views, v)
			}

			out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			if out.json() {
				return out.emit(map[string]any{"scene": reg.Current(), "bindings": views})
			}
			out.linef("scene %s (stop key %s)", reg.Current(), reg.Settings().StopKey)
			for _, v := range views {
				mark := ""
				if !v.Playable {
					mark = "  [unplayable]"
				}
				out.linef("  %-10s %s%s", v.Key, v.Path, mark)
			}
			return nil
		},
	}
}
