// Package commands assembles the demigrate command tree.
package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/demigrate/demigrate/cmd/demigrate/commands/backup"
	"github.com/demigrate/demigrate/cmd/demigrate/commands/finish"
	"github.com/demigrate/demigrate/cmd/demigrate/commands/guide"
	"github.com/demigrate/demigrate/cmd/demigrate/commands/restore"
	settingscmd "github.com/demigrate/demigrate/cmd/demigrate/commands/settings"
	"github.com/demigrate/demigrate/cmd/demigrate/commands/status"
	"github.com/demigrate/demigrate/internal/version"
	"github.com/demigrate/demigrate/pkg/logging"
	"github.com/demigrate/demigrate/pkg/style"
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	var verbosity int

	rootCmd := &cobra.Command{
		Use:     "demigrate",
		Short:   MsgShort,
		Long:    MsgLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Preview changes without executing them")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "Skip confirmation prompts")
	rootCmd.PersistentFlags().String("backup-dir", "", "Operate on a specific backup session directory")

	rootCmd.AddCommand(backup.NewCommand())
	rootCmd.AddCommand(finish.NewCommand())
	rootCmd.AddCommand(settingscmd.NewCommand())
	rootCmd.AddCommand(restore.NewCommand())
	rootCmd.AddCommand(status.NewCommand())
	rootCmd.AddCommand(guide.NewCommand())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", style.Bold("demigrate"), version.Version)
			fmt.Printf("  commit: %s\n", version.Commit)
			fmt.Printf("  built:  %s\n", version.Date)
		},
	}
}
