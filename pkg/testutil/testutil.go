// Package testutil provides shared test scaffolding: a scripted command
// runner and filesystem helpers for building fake home directories.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/demigrate/demigrate/pkg/errors"
)

// FakeRunner is a scripted executil.Runner. Responses and failures are
// keyed by the full command line ("name arg1 arg2 ...").
type FakeRunner struct {
	// Responses maps command lines to their stdout.
	Responses map[string]string

	// Errs maps command lines to a forced error.
	Errs map[string]error

	// MissingTools marks tool names LookPath reports as not installed.
	MissingTools map[string]bool

	// Calls records every executed command line in order.
	Calls []string
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Responses:    make(map[string]string),
		Errs:         make(map[string]error),
		MissingTools: make(map[string]bool),
	}
}

// Run implements executil.Runner.
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	return f.RunEnv(ctx, nil, name, args...)
}

// RunEnv implements executil.Runner. Extra environment is ignored; the
// command line alone selects the scripted response.
func (f *FakeRunner) RunEnv(ctx context.Context, extraEnv []string, name string, args ...string) (string, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	f.Calls = append(f.Calls, key)

	if err, ok := f.Errs[key]; ok {
		return "", err
	}
	if out, ok := f.Responses[key]; ok {
		return out, nil
	}
	return "", nil
}

// LookPath implements executil.Runner.
func (f *FakeRunner) LookPath(name string) (string, error) {
	if f.MissingTools[name] {
		return "", errors.Newf(errors.ErrToolUnavailable, "required tool %q not found", name)
	}
	return "/usr/bin/" + name, nil
}

// CallsTo returns the recorded command lines starting with the given tool.
func (f *FakeRunner) CallsTo(tool string) []string {
	var calls []string
	for _, c := range f.Calls {
		if strings.HasPrefix(c, tool+" ") || c == tool {
			calls = append(calls, c)
		}
	}
	return calls
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadFile reads path or fails the test.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// TempHome creates an isolated home directory and points HOME plus the
// demigrate directory overrides into it.
func TempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DEMIGRATE_BACKUP_ROOT", filepath.Join(home, "backups"))
	t.Setenv("DEMIGRATE_CACHE_DIR", filepath.Join(home, "cache"))
	t.Setenv("DEMIGRATE_CONFIG_DIR", filepath.Join(home, "config"))
	return home
}
