package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.True(t, cfg.Search.ReadableOnly)
	assert.Equal(t, uint64(256<<20), cfg.Search.MaxRegionSize)
	assert.Zero(t, cfg.Search.MaxResults)
	assert.Equal(t, uint64(100<<20), cfg.Dump.MaxRegionSize)
	assert.Equal(t, 16, cfg.Display.BytesPerLine)
	assert.Equal(t, 16, cfg.Display.Context)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "memedit.yaml"), []byte("search:\n  max_results: 5\n  max_region_size: 1024\n"), 0644))
	t.Setenv("MEMEDIT_SEARCH_MAX_REGION_SIZE", "4096")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, uint64(4096), cfg.Search.MaxRegionSize)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MEMEDIT_DISPLAY_CONTEXT", "64")
	t.Setenv("MEMEDIT_SEARCH_MAX_RESULTS", "7")

	cfg, err := Load(newFlags(t, "--context=8", "--readable-only=false"))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Display.Context)
	assert.False(t, cfg.Search.ReadableOnly)

	// unset flags fall through to the environment
	assert.Equal(t, 7, cfg.Search.MaxResults)
}

func TestExplicitConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("display:\n  bytes_per_line: 8\n"), 0644))

	cfg, err := Load(newFlags(t, "--config", path))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Display.BytesPerLine)

	_, err = Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}
