package settings

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/demigrate/demigrate/pkg/errors"
	"github.com/demigrate/demigrate/pkg/executil"
	"github.com/demigrate/demigrate/pkg/logging"
)

// fallbackScanWindow bounds how much of the binary database the degraded
// scan reads. Keeps the cost sane on pathologically large databases.
const fallbackScanWindow = 1 << 20

// minPrintableRun is the shortest printable byte run the fallback scan
// considers a candidate token.
const minPrintableRun = 3

// Extractor turns archived settings sources into ExtractedSetting lists.
type Extractor struct {
	dconf  *DconfTool
	logger zerolog.Logger
}

// NewExtractor returns an Extractor whose external tool invocations use
// the given runner and timeout.
func NewExtractor(runner executil.Runner, toolTimeout time.Duration) *Extractor {
	return &Extractor{
		dconf:  NewDconfTool(runner, toolTimeout),
		logger: logging.GetLogger("settings.extract"),
	}
}

// Extract runs one category's extraction against the archived source root.
// It fails with ErrNotFound when no candidate source exists and ErrEmpty
// when a source exists but yields no recognized keys.
func (e *Extractor) Extract(ctx context.Context, cat SettingCategory, sourceRoot string) (ExtractResult, error) {
	srcPath, err := probeCandidates(cat, sourceRoot)
	if err != nil {
		return ExtractResult{}, err
	}

	switch cat.Kind {
	case KindPlainText:
		return e.extractPlainText(cat, srcPath)
	case KindDconf:
		return e.extractDconf(ctx, cat, srcPath)
	default:
		return ExtractResult{}, errors.Newf(errors.ErrInternal, "unhandled category kind %d", cat.Kind)
	}
}

// probeCandidates locates the first existing candidate source path.
func probeCandidates(cat SettingCategory, sourceRoot string) (string, error) {
	for _, rel := range cat.CandidatePaths {
		path := filepath.Join(sourceRoot, rel)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.Newf(errors.ErrNotFound, "no source found for category %s", cat.ID)
}

// extractDconf prefers the structured dump parse and degrades to a raw
// printable scan when the structured path produced nothing.
func (e *Extractor) extractDconf(ctx context.Context, cat SettingCategory, dbPath string) (ExtractResult, error) {
	res := ExtractResult{Origin: OriginStructured}

	if e.dconf.Available() {
		dump, err := e.dconf.DumpFromDatabase(ctx, dbPath)
		if err == nil {
			res.ToolRan = true
			res.Settings = parseDconfDump(cat, dump)
			if len(res.Settings) > 0 {
				e.logger.Debug().Str("category", string(cat.ID)).
					Int("count", len(res.Settings)).Msg("Structured parse succeeded")
				return res, nil
			}
			e.logger.Debug().Str("category", string(cat.ID)).
				Msg("Structured parse ran but yielded no allow-listed keys")
		} else {
			e.logger.Warn().Err(err).Str("category", string(cat.ID)).Msg("dconf dump failed")
		}
	} else {
		e.logger.Warn().Str("category", string(cat.ID)).
			Msg("dconf tool unavailable, using degraded scan")
	}

	// Degraded path: best-effort raw scan of the binary database.
	res.Origin = OriginFallback
	settings, err := fallbackScan(cat, dbPath)
	if err != nil {
		return res, err
	}
	res.Settings = settings

	if len(res.Settings) == 0 {
		if res.ToolRan {
			return res, errors.Newf(errors.ErrEmpty,
				"category %s parsed successfully but holds nothing to migrate", cat.ID)
		}
		return res, errors.Newf(errors.ErrEmpty, "no recognized keys found for category %s", cat.ID)
	}

	e.logger.Info().Str("category", string(cat.ID)).Int("count", len(res.Settings)).
		Msg("Degraded scan recovered settings")
	return res, nil
}

// parseDconfDump parses the section-header + key=value output of
// `dconf dump /`, keeping only allow-listed keys. Duplicate scope keys keep
// their first occurrence.
func parseDconfDump(cat SettingCategory, dump string) []ExtractedSetting {
	var out []ExtractedSetting
	seen := make(map[string]bool)

	section := ""
	scanner := bufio.NewScanner(strings.NewReader(dump))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.Trim(line, "[]")
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok || section == "" {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if !cat.AllowsKey(section, key) {
			continue
		}

		scopeKey := "/" + section + "/" + key
		if seen[scopeKey] {
			continue
		}
		seen[scopeKey] = true

		out = append(out, ExtractedSetting{
			ScopeKey:       scopeKey,
			Value:          value,
			OriginCategory: cat.ID,
		})
	}

	return out
}

// fallbackScan recovers settings from the raw database bytes: printable
// runs are tokenized within a bounded window, and a token matching an
// allow-listed key name is paired with the following printable run as its
// value. Explicitly best-effort.
func fallbackScan(cat SettingCategory, dbPath string) ([]ExtractedSetting, error) {
	f, err := os.Open(dbPath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrIOFailure, "failed to open %s", dbPath)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, fallbackScanWindow))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrIOFailure, "failed to read %s", dbPath)
	}

	runs := printableRuns(data)

	var out []ExtractedSetting
	seen := make(map[string]bool)

	for i := 0; i+1 < len(runs); i++ {
		section, known := cat.SectionForKey(runs[i])
		if !known {
			continue
		}

		value := runs[i+1]
		if _, alsoKey := cat.SectionForKey(value); alsoKey {
			// Two adjacent key names with no value between them.
			continue
		}

		scopeKey := "/" + section + "/" + runs[i]
		if seen[scopeKey] {
			continue
		}
		seen[scopeKey] = true

		out = append(out, ExtractedSetting{
			ScopeKey:       scopeKey,
			Value:          value,
			OriginCategory: cat.ID,
		})
	}

	return out, nil
}

// printableRuns splits raw bytes into runs of printable ASCII at least
// minPrintableRun long.
func printableRuns(data []byte) []string {
	var runs []string
	start := -1

	for i, b := range data {
		printable := b >= 0x20 && b < 0x7f
		if printable && start < 0 {
			start = i
		}
		if !printable && start >= 0 {
			if i-start >= minPrintableRun {
				runs = append(runs, string(data[start:i]))
			}
			start = -1
		}
	}
	if start >= 0 && len(data)-start >= minPrintableRun {
		runs = append(runs, string(data[start:]))
	}

	return runs
}

// extractPlainText matches a fixed set of key prefixes anchored at line
// start. Absence of any match is NotFound, not an error.
func (e *Extractor) extractPlainText(cat SettingCategory, srcPath string) (ExtractResult, error) {
	res := ExtractResult{Origin: OriginPlainText}

	f, err := os.Open(srcPath)
	if err != nil {
		return res, errors.Wrapf(err, errors.ErrIOFailure, "failed to open %s", srcPath)
	}
	defer func() { _ = f.Close() }()

	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()

		for _, prefix := range cat.KeyPrefixes {
			if !strings.HasPrefix(line, prefix+"=") {
				continue
			}

			scopeKey := "/" + string(cat.ID) + "/" + prefix
			if seen[scopeKey] {
				break
			}
			seen[scopeKey] = true

			res.Settings = append(res.Settings, ExtractedSetting{
				ScopeKey:       scopeKey,
				Value:          strings.TrimPrefix(line, prefix+"="),
				OriginCategory: cat.ID,
			})
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return res, errors.Wrapf(err, errors.ErrIOFailure, "failed to read %s", srcPath)
	}

	if len(res.Settings) == 0 {
		return res, errors.Newf(errors.ErrNotFound, "no migratable keys in %s", srcPath)
	}
	return res, nil
}
