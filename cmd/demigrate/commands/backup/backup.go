// Package backup implements the pre-switch phase command.
package backup

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/demigrate/demigrate/internal/cli"
	"github.com/demigrate/demigrate/pkg/migrate"
	"github.com/demigrate/demigrate/pkg/style"
	"github.com/demigrate/demigrate/pkg/types"
)

// NewCommand creates the backup command
func NewCommand() *cobra.Command {
	var (
		sourceFlag      string
		targetFlag      string
		sourceImageFlag string
		targetImageFlag string
	)

	cmd := &cobra.Command{
		Use:     "backup",
		Short:   MsgShort,
		Long:    MsgLong,
		Example: MsgExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cli.NewRuntime(cmd)
			if err != nil {
				return err
			}

			source := types.DesktopEnv(sourceFlag)
			if sourceFlag == "" {
				source = cli.DetectCurrentDE()
				if source == "" {
					return fmt.Errorf("could not detect the current desktop environment, use --from")
				}
			}

			target := types.DesktopEnv(targetFlag)
			if targetFlag == "" {
				target = source.Other()
			}

			sourceImage := sourceImageFlag
			if sourceImage == "" {
				sourceImage = cli.DefaultImage(source)
			}
			targetImage := targetImageFlag
			if targetImage == "" {
				targetImage = cli.DefaultImage(target)
			}

			mctx := rt.MigrationContext(source, target, sourceImage, targetImage)
			if err := mctx.Validate(); err != nil {
				return err
			}

			pterm.Info.Printfln("Backing up %s configuration before switching to %s",
				source.Label(), target.Label())

			if !rt.Confirm(fmt.Sprintf("Archive your %s configuration now?", source.Label())) {
				pterm.Info.Println("Cancelled.")
				return nil
			}

			orch := migrate.New(mctx, rt.Config, rt.Paths, rt.Runner)
			result, err := orch.PreSwitch(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println()
			pterm.Success.Printfln("Backup complete: %s", result.Counts)
			fmt.Printf("  session: %s\n", style.PathStyle.Render(result.SessionRoot))
			if result.Counts.Errors > 0 {
				pterm.Warning.Printfln("%d paths failed to archive, check the log", result.Counts.Errors)
			}

			fmt.Println()
			fmt.Println(style.Bold("Next steps:"))
			fmt.Printf("  1. rpm-ostree rebase %s\n", targetImage)
			fmt.Println("  2. systemctl reboot")
			fmt.Println("  3. demigrate finish")
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceFlag, "from", "", "Source desktop environment (gnome|kde, default: detected)")
	cmd.Flags().StringVar(&targetFlag, "to", "", "Target desktop environment (gnome|kde, default: the other one)")
	cmd.Flags().StringVar(&sourceImageFlag, "from-image", "", "Source OS image reference")
	cmd.Flags().StringVar(&targetImageFlag, "to-image", "", "Target OS image reference")

	return cmd
}
