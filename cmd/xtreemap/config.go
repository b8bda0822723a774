package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/benz9527/xtree/lib/tree"
	"github.com/benz9527/xtree/observability"
	"github.com/benz9527/xtree/xlog"
)

const (
	configName      = ".xtreemap"
	configType      = "yaml"
	envPrefix       = "XTREE"
	envKeySeparator = "_"
)

const (
	DefaultLogLevel        = "INFO"
	DefaultLogEncoder      = "json"
	DefaultMetricsExporter = "none"
	DefaultMetricsInterval = 10 * time.Second
	DefaultArenaPageSize   = 256
	DefaultBenchTrees      = 8
	DefaultBenchKeys       = 10_000
	DefaultBenchWorkers    = 4
)

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Encoder string `mapstructure:"encoder"`
}

type MetricsConfig struct {
	Exporter string        `mapstructure:"exporter"`
	Interval time.Duration `mapstructure:"interval"`
}

type TreeConfig struct {
	Desc             bool   `mapstructure:"desc"`
	RemoveBorrowSucc bool   `mapstructure:"remove_borrow_succ"`
	ArenaPageSize    uint32 `mapstructure:"arena_page_size"`
	Stats            bool   `mapstructure:"stats"`
	NoColor          bool   `mapstructure:"no_color"`
}

type BenchConfig struct {
	Trees   int `mapstructure:"trees"`
	Keys    int `mapstructure:"keys"`
	Workers int `mapstructure:"workers"`
}

type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tree    TreeConfig    `mapstructure:"tree"`
	Bench   BenchConfig   `mapstructure:"bench"`
}

func (cfg *Config) Validate() error {
	var err error
	if _, encErr := xlog.ParseEncoder(cfg.Log.Encoder); encErr != nil {
		err = multierr.Append(err, encErr)
	}
	if _, expErr := observability.ParseMetricsExporterType(cfg.Metrics.Exporter); expErr != nil {
		err = multierr.Append(err, expErr)
	}
	if cfg.Bench.Trees <= 0 {
		err = multierr.Append(err, fmt.Errorf("bench.trees must be positive, got %d", cfg.Bench.Trees))
	}
	if cfg.Bench.Keys < 0 {
		err = multierr.Append(err, fmt.Errorf("bench.keys must not be negative, got %d", cfg.Bench.Keys))
	}
	if cfg.Bench.Workers <= 0 {
		err = multierr.Append(err, fmt.Errorf("bench.workers must be positive, got %d", cfg.Bench.Workers))
	}
	return err
}

func (cfg *Config) treeOptions() []tree.RBTreeOpt[int, int] {
	opts := make([]tree.RBTreeOpt[int, int], 0, 4)
	if cfg.Tree.Desc {
		opts = append(opts, tree.WithRBTreeDesc[int, int]())
	}
	if cfg.Tree.RemoveBorrowSucc {
		opts = append(opts, tree.WithRBTreeRemoveBorrowSucc[int, int]())
	}
	if cfg.Tree.ArenaPageSize > 0 {
		opts = append(opts, tree.WithRBTreeArenaPageSize[int, int](cfg.Tree.ArenaPageSize))
	}
	if cfg.Tree.Stats {
		opts = append(opts, tree.WithRBTreeStats[int, int]("xtreemap"))
	}
	return opts
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("log.level", DefaultLogLevel)
	viperCfg.SetDefault("log.encoder", DefaultLogEncoder)

	viperCfg.SetDefault("metrics.exporter", DefaultMetricsExporter)
	viperCfg.SetDefault("metrics.interval", DefaultMetricsInterval)

	viperCfg.SetDefault("tree.desc", false)
	viperCfg.SetDefault("tree.remove_borrow_succ", false)
	viperCfg.SetDefault("tree.arena_page_size", DefaultArenaPageSize)
	viperCfg.SetDefault("tree.stats", false)
	viperCfg.SetDefault("tree.no_color", false)

	viperCfg.SetDefault("bench.trees", DefaultBenchTrees)
	viperCfg.SetDefault("bench.keys", DefaultBenchKeys)
	viperCfg.SetDefault("bench.workers", DefaultBenchWorkers)
}

// flagKeys maps the cobra flags to the nested config keys.
var flagKeys = map[string]string{
	"log-level":          "log.level",
	"log-encoder":        "log.encoder",
	"metrics":            "metrics.exporter",
	"metrics-interval":   "metrics.interval",
	"desc":               "tree.desc",
	"remove-borrow-succ": "tree.remove_borrow_succ",
	"arena-page-size":    "tree.arena_page_size",
	"stats":              "tree.stats",
	"no-color":           "tree.no_color",
	"trees":              "bench.trees",
	"keys":               "bench.keys",
	"workers":            "bench.workers",
}

// loadConfig loads configuration from flags, env vars, file and defaults.
// If configPath is empty, the config file is searched in CWD and $HOME.
// Missing config file is not an error.
func loadConfig(cmd *cobra.Command, configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	for name, key := range flagKeys {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			if err := viperCfg.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	if readErr := viperCfg.ReadInConfig(); readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config
	if err := viperCfg.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}
