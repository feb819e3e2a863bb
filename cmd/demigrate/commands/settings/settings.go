// Package settings implements the opt-in settings replay command.
package settings

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/demigrate/demigrate/internal/cli"
	"github.com/demigrate/demigrate/pkg/migrate"
	"github.com/demigrate/demigrate/pkg/style"
	"github.com/demigrate/demigrate/pkg/types"
)

// NewCommand creates the settings command
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "settings",
		Short:   MsgShort,
		Long:    MsgLong,
		Example: MsgExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cli.NewRuntime(cmd)
			if err != nil {
				return err
			}

			root, manifest, err := rt.ResolveSession()
			if err != nil {
				return err
			}
			pterm.Info.Printfln("Replaying %s settings from %s",
				types.DesktopEnv(manifest.SourceDe).Label(), style.PathStyle.Render(root))
			pterm.Warning.Println("Settings migration across desktops is best-effort and experimental.")

			if !rt.Confirm("Apply the archived settings to the current desktop?") {
				pterm.Info.Println("Cancelled.")
				return nil
			}

			mctx := rt.MigrationContext(
				types.DesktopEnv(manifest.SourceDe),
				types.DesktopEnv(manifest.TargetDe),
				manifest.SourceImage,
				manifest.TargetImage,
			)

			orch := migrate.New(mctx, rt.Config, rt.Paths, rt.Runner)
			counts, err := orch.ReplaySettings(cmd.Context(), root, manifest)
			if err != nil {
				return err
			}

			fmt.Println()
			pterm.Success.Printfln("Settings replay: %s", counts)
			return nil
		},
	}

	return cmd
}
