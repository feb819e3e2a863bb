package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"

	"github.com/demigrate/demigrate/pkg/errors"
	"github.com/demigrate/demigrate/pkg/executil"
	"github.com/demigrate/demigrate/pkg/logging"
	"github.com/demigrate/demigrate/pkg/types"
)

// dconfKeyPattern is the strict grammar a dconf scope key must match
// before a write is attempted. Scope keys originate from a previously
// archived, potentially stale or tampered file, so this is a safety
// invariant: absolute, slash-separated, lowercase segments only.
var dconfKeyPattern = regexp.MustCompile(`^(/[a-z0-9][a-z0-9-]*)+$`)

// plainKeyPattern constrains the key segment merged into plain-text files.
var plainKeyPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Applier re-applies extracted settings to the live environment with
// merge-or-append semantics. Per-setting failures are aggregated, never
// propagated.
type Applier struct {
	dconf   *DconfTool
	homeDir string
	dryRun  bool
	logger  zerolog.Logger
}

// NewApplier returns an Applier writing against the given home directory.
func NewApplier(runner executil.Runner, toolTimeout time.Duration, homeDir string, dryRun bool) *Applier {
	return &Applier{
		dconf:   NewDconfTool(runner, toolTimeout),
		homeDir: homeDir,
		dryRun:  dryRun,
		logger:  logging.GetLogger("settings.apply"),
	}
}

// Apply writes every setting through its category's native mechanism:
// dconf keys as independent store writes, plain-text keys as file-scoped
// merge-or-append. Returns tri-counts; never fails on a single setting.
func (a *Applier) Apply(ctx context.Context, settings []ExtractedSetting) types.OpCounts {
	var counts types.OpCounts

	categories := make(map[CategoryID]SettingCategory)
	for _, cat := range AllCategories() {
		categories[cat.ID] = cat
	}

	// Plain-text settings are grouped per destination file so each file
	// is rewritten at most once.
	plainByDest := make(map[string][]ExtractedSetting)
	var plainDests []string

	for _, s := range settings {
		cat, ok := categories[s.OriginCategory]
		if !ok {
			a.logger.Warn().Str("category", string(s.OriginCategory)).Msg("Unknown origin category, dropping setting")
			counts.Errors++
			continue
		}

		switch cat.Kind {
		case KindDconf:
			counts.Add(a.applyDconf(ctx, s))
		case KindPlainText:
			dest := filepath.Join(a.homeDir, cat.DestinationPath)
			if _, seen := plainByDest[dest]; !seen {
				plainDests = append(plainDests, dest)
			}
			plainByDest[dest] = append(plainByDest[dest], s)
		}
	}

	for _, dest := range plainDests {
		counts.Add(a.applyPlainText(dest, plainByDest[dest]))
	}

	return counts
}

// applyDconf validates and writes one setting to the live dconf store.
func (a *Applier) applyDconf(ctx context.Context, s ExtractedSetting) types.OpCounts {
	if strings.Contains(s.ScopeKey, "..") || !dconfKeyPattern.MatchString(s.ScopeKey) {
		a.logger.Warn().Str("scopeKey", s.ScopeKey).Msg("Scope key rejected by safety grammar")
		return types.OpCounts{Errors: 1}
	}

	if a.dryRun {
		fmt.Printf("[dry-run] would write dconf key %s = %s\n", s.ScopeKey, s.Value)
		return types.OpCounts{Migrated: 1}
	}

	if err := a.dconf.Write(ctx, s.ScopeKey, s.Value); err != nil {
		a.logger.Error().Err(err).Str("scopeKey", s.ScopeKey).Msg("dconf write failed")
		return types.OpCounts{Errors: 1}
	}

	a.logger.Info().Str("scopeKey", s.ScopeKey).Msg("Setting applied")
	return types.OpCounts{Migrated: 1}
}

// applyPlainText merges settings into one destination file. An existing
// key's line is replaced in place, a new key is appended, and unrelated
// lines are left byte-identical. A missing destination is created fresh
// with only the migrated keys.
func (a *Applier) applyPlainText(destPath string, settings []ExtractedSetting) types.OpCounts {
	var counts types.OpCounts

	original, existed, err := readLines(destPath)
	if err != nil {
		a.logger.Error().Err(err).Str("path", destPath).Msg("Cannot read destination file")
		counts.Errors += len(settings)
		return counts
	}

	lines := append([]string(nil), original...)

	for _, s := range settings {
		key := s.ScopeKey[strings.LastIndex(s.ScopeKey, "/")+1:]
		if !plainKeyPattern.MatchString(key) {
			a.logger.Warn().Str("scopeKey", s.ScopeKey).Msg("Scope key rejected by safety grammar")
			counts.Errors++
			continue
		}

		newLine := key + "=" + s.Value
		replaced := false
		for i, line := range lines {
			if strings.HasPrefix(line, key+"=") {
				if line == newLine {
					counts.Skipped++
				} else {
					lines[i] = newLine
					counts.Migrated++
				}
				replaced = true
				break
			}
		}
		if !replaced {
			lines = append(lines, newLine)
			counts.Migrated++
		}
	}

	if counts.Migrated == 0 {
		return counts
	}

	if a.dryRun {
		fmt.Printf("[dry-run] would update %s:\n%s", destPath, unifiedDiff(original, lines, destPath))
		return counts
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		a.logger.Error().Err(err).Str("path", destPath).Msg("Cannot create destination directory")
		counts.Errors += counts.Migrated
		counts.Migrated = 0
		return counts
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(destPath, []byte(content), 0644); err != nil {
		a.logger.Error().Err(err).Str("path", destPath).Msg("Cannot write destination file")
		counts.Errors += counts.Migrated
		counts.Migrated = 0
		return counts
	}

	if existed {
		a.logger.Info().Str("path", destPath).Int("keys", counts.Migrated).Msg("Merged settings into existing file")
	} else {
		a.logger.Info().Str("path", destPath).Int("keys", counts.Migrated).Msg("Created settings file")
	}
	return counts
}

// readLines returns the file's lines and whether it existed. A trailing
// newline does not produce an empty final line.
func readLines(path string) ([]string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, errors.ErrIOFailure, "failed to read %s", path)
	}

	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil, true, nil
	}
	return strings.Split(text, "\n"), true, nil
}

// unifiedDiff renders the dry-run preview of a plain-text merge.
func unifiedDiff(before, after []string, path string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.Join(before, "\n") + "\n"),
		B:        difflib.SplitLines(strings.Join(after, "\n") + "\n"),
		FromFile: path,
		ToFile:   path + " (after merge)",
		Context:  2,
	})
	if err != nil {
		return ""
	}
	return diff
}
