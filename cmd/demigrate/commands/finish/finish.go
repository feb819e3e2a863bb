// Package finish implements the post-switch phase command.
package finish

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/demigrate/demigrate/internal/cli"
	"github.com/demigrate/demigrate/pkg/migrate"
	"github.com/demigrate/demigrate/pkg/style"
	"github.com/demigrate/demigrate/pkg/types"
)

// NewCommand creates the finish command
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "finish",
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
			pterm.Info.Printfln("Using backup session %s", style.PathStyle.Render(root))

			mctx := rt.MigrationContext(
				types.DesktopEnv(manifest.SourceDe),
				types.DesktopEnv(manifest.TargetDe),
				manifest.SourceImage,
				manifest.TargetImage,
			)

			orch := migrate.New(mctx, rt.Config, rt.Paths, rt.Runner)
			input, err := orch.ReconcilePlan(cmd.Context(), manifest)
			if err != nil {
				return err
			}

			printPlan(input)
			if input.Plan.Empty() {
				pterm.Success.Println("Applications already match the new desktop's catalog.")
				return nil
			}

			if !rt.Confirm("Apply these application changes?") {
				pterm.Info.Println("Cancelled.")
				return nil
			}

			counts := orch.ExecuteReconcile(cmd.Context(), input.Plan)
			fmt.Println()
			pterm.Success.Printfln("Application reconciliation: %s", counts)
			if counts.Errors > 0 {
				pterm.Warning.Printfln("%d applications failed, check the log", counts.Errors)
			}
			return nil
		},
	}

	return cmd
}

func printPlan(input migrate.ReconcileInput) {
	fmt.Println()
	fmt.Println(style.TitleStyle.Render(fmt.Sprintf("Application changes for %s", input.TargetDE.Label())))
	if input.Stale {
		pterm.Warning.Println("Plan computed from a stale catalog cache.")
	}

	for _, app := range input.Plan.ToRemove {
		fmt.Printf("  %s remove  %s\n", style.ErrorIndicator, app)
	}
	for _, app := range input.Plan.ToInstall {
		fmt.Printf("  %s install %s\n", style.SuccessIndicator, app)
	}
	fmt.Printf("  %s %d already present\n", style.InfoIndicator, len(input.Plan.AlreadyPresent))
}
