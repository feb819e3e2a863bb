// Package status implements the status command.
package status

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/demigrate/demigrate/internal/cli"
	"github.com/demigrate/demigrate/pkg/archive"
	"github.com/demigrate/demigrate/pkg/catalog"
	"github.com/demigrate/demigrate/pkg/errors"
	"github.com/demigrate/demigrate/pkg/style"
	"github.com/demigrate/demigrate/pkg/types"
)

// NewCommand creates the status command
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status",
		Short:   MsgShort,
		Long:    MsgLong,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cli.NewRuntime(cmd)
			if err != nil {
				return err
			}

			root, manifest, err := rt.ResolveSession()
			switch {
			case errors.IsErrorCode(err, errors.ErrSessionNotFound):
				pterm.Info.Println("No backup sessions found.")
			case err != nil:
				return err
			default:
				printSession(root, manifest)
			}

			printCache(rt.Paths.CatalogCacheDir(), rt.Config.CacheTTLHours)
			return nil
		},
	}

	return cmd
}

func printSession(root string, manifest archive.Manifest) {
	fmt.Println(style.TitleStyle.Render("Latest backup session"))
	fmt.Printf("  path:    %s\n", style.PathStyle.Render(root))
	fmt.Printf("  created: %s\n", manifest.Timestamp.Format(time.RFC1123))
	fmt.Printf("  switch:  %s -> %s\n",
		types.DesktopEnv(manifest.SourceDe).Label(), types.DesktopEnv(manifest.TargetDe).Label())

	var copied, moved, skipped int
	for _, ap := range manifest.ArchivedPaths {
		switch ap.Disposition {
		case archive.DispositionCopied:
			copied++
		case archive.DispositionMoved:
			moved++
		case archive.DispositionSkippedMissing:
			skipped++
		}
	}
	fmt.Printf("  paths:   %d copied, %d moved, %d skipped (missing)\n", copied, moved, skipped)
	if manifest.Failures > 0 {
		fmt.Printf("  %s %d archive failures recorded\n", style.WarningIndicator, manifest.Failures)
	}
	fmt.Println()
}

func printCache(cacheDir string, ttlHours int) {
	entries := catalog.CacheEntries(cacheDir)
	if len(entries) == 0 {
		pterm.Info.Println("No cached application catalogs.")
		return
	}

	fmt.Println(style.TitleStyle.Render("Catalog cache"))
	ttl := time.Duration(ttlHours) * time.Hour
	for _, e := range entries {
		age := time.Since(e.FetchedAt).Round(time.Minute)
		freshness := "fresh"
		if age >= ttl {
			freshness = "stale"
		}
		fmt.Printf("  %-6s fetched %s ago (%s)\n", e.DE, age, freshness)
	}
}
