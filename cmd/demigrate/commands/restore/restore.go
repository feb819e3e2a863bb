// Package restore implements the native restore command, mirroring the
// generated restore-configs.sh semantics.
package restore

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/demigrate/demigrate/internal/cli"
	"github.com/demigrate/demigrate/pkg/archive"
	"github.com/demigrate/demigrate/pkg/style"
)

// NewCommand creates the restore command
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "restore",
		Short:   MsgShort,
		Long:    MsgLong,
		Example: MsgExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cli.NewRuntime(cmd)
			if err != nil {
				return err
			}

			root, _, err := rt.ResolveSession()
			if err != nil {
				return err
			}
			pterm.Info.Printfln("Restoring from %s", style.PathStyle.Render(root))

			if !rt.Confirm("Restore archived configuration files to their original locations?") {
				pterm.Info.Println("Cancelled.")
				return nil
			}

			counts, err := archive.Restore(root, rt.DryRun)
			if err != nil {
				return err
			}

			fmt.Println()
			pterm.Success.Printfln("Restore: %s", counts)
			return nil
		},
	}

	return cmd
}
