package settings

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/demigrate/demigrate/pkg/errors"
	"github.com/demigrate/demigrate/pkg/executil"
	"github.com/demigrate/demigrate/pkg/logging"
)

// DconfTool wraps the dconf command-line tool. Dumps run against an
// isolated copy of the database; writes go to the live user store.
type DconfTool struct {
	runner  executil.Runner
	timeout time.Duration
	logger  zerolog.Logger
}

// NewDconfTool returns a DconfTool using the given runner. The timeout
// bounds each invocation.
func NewDconfTool(runner executil.Runner, timeout time.Duration) *DconfTool {
	return &DconfTool{
		runner:  runner,
		timeout: timeout,
		logger:  logging.GetLogger("settings.dconf"),
	}
}

// Available reports whether the dconf tool is installed.
func (d *DconfTool) Available() bool {
	_, err := d.runner.LookPath("dconf")
	return err == nil
}

// DumpFromDatabase materializes the archived database file into a
// temporary isolated config root and dumps the full settings tree from it.
// The original archived copy is never touched, and the temporary root is
// removed on every exit path.
func (d *DconfTool) DumpFromDatabase(ctx context.Context, dbPath string) (string, error) {
	tmpRoot, err := os.MkdirTemp("", "demigrate-dconf-")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrIOFailure, "failed to create isolated dconf workspace")
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpRoot); rmErr != nil {
			d.logger.Warn().Err(rmErr).Str("path", tmpRoot).Msg("Failed to remove isolated dconf workspace")
		}
	}()

	dconfDir := filepath.Join(tmpRoot, "dconf")
	if err := os.MkdirAll(dconfDir, 0700); err != nil {
		return "", errors.Wrap(err, errors.ErrIOFailure, "failed to prepare isolated dconf workspace")
	}

	data, err := os.ReadFile(dbPath)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrIOFailure, "failed to read archived dconf database %s", dbPath)
	}
	if err := os.WriteFile(filepath.Join(dconfDir, "user"), data, 0600); err != nil {
		return "", errors.Wrap(err, errors.ErrIOFailure, "failed to stage dconf database copy")
	}

	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	out, err := d.runner.RunEnv(runCtx, []string{"XDG_CONFIG_HOME=" + tmpRoot}, "dconf", "dump", "/")
	if err != nil {
		return "", err
	}
	return out, nil
}

// Write applies one key/value pair to the live user store.
func (d *DconfTool) Write(ctx context.Context, scopeKey, value string) error {
	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	_, err := d.runner.Run(runCtx, "dconf", "write", scopeKey, value)
	return err
}
