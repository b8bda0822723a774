package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

// chdirTemp keeps the config file lookup away from the working tree.
func chdirTemp(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
	})
}

func findCommand(t *testing.T, args ...string) *cobra.Command {
	root := newRootCommand(&bytes.Buffer{}, &bytes.Buffer{})
	cmd, rest, err := root.Find(args)
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags(rest))
	return cmd
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdirTemp(t)
	cfg, err := loadConfig(findCommand(t, "bench"), "")
	require.NoError(t, err)
	require.Equal(t, DefaultLogLevel, cfg.Log.Level)
	require.Equal(t, DefaultLogEncoder, cfg.Log.Encoder)
	require.Equal(t, DefaultMetricsExporter, cfg.Metrics.Exporter)
	require.Equal(t, DefaultMetricsInterval, cfg.Metrics.Interval)
	require.Equal(t, uint32(DefaultArenaPageSize), cfg.Tree.ArenaPageSize)
	require.False(t, cfg.Tree.Desc)
	require.Equal(t, DefaultBenchTrees, cfg.Bench.Trees)
	require.Equal(t, DefaultBenchKeys, cfg.Bench.Keys)
	require.Equal(t, DefaultBenchWorkers, cfg.Bench.Workers)
	require.Len(t, cfg.treeOptions(), 1)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xtreemap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: warn
tree:
  desc: true
  arena_page_size: 16
bench:
  trees: 2
  workers: 2
metrics:
  interval: 3s
`), 0o600))
	t.Setenv("XTREE_BENCH_TREES", "5")

	cmd := findCommand(t, "bench", "--workers", "7", "--remove-borrow-succ")
	cfg, err := loadConfig(cmd, path)
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Log.Level)
	require.True(t, cfg.Tree.Desc)
	require.True(t, cfg.Tree.RemoveBorrowSucc)
	require.Equal(t, uint32(16), cfg.Tree.ArenaPageSize)
	require.Equal(t, 3*time.Second, cfg.Metrics.Interval)
	// Env overrides the file, flag overrides the env.
	require.Equal(t, 5, cfg.Bench.Trees)
	require.Equal(t, 7, cfg.Bench.Workers)
	require.Len(t, cfg.treeOptions(), 3)
}

func TestLoadConfig_Invalid(t *testing.T) {
	chdirTemp(t)

	_, err := loadConfig(findCommand(t, "bench"), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	cmd := findCommand(t, "bench", "--trees", "0", "--workers=-1", "--log-encoder", "xml", "--metrics", "otlp")
	_, err = loadConfig(cmd, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "validate config")

	cfg := &Config{
		Log:     LogConfig{Encoder: "json"},
		Metrics: MetricsConfig{Exporter: "none"},
		Bench:   BenchConfig{Trees: 0, Keys: -1, Workers: 0},
	}
	require.Len(t, multierr.Errors(cfg.Validate()), 3)
}
