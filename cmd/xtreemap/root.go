package main

import (
	"io"

	"github.com/spf13/cobra"
)

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	var configPath string
	s := streams{out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:   "xtreemap",
		Short: "xtreemap - red-black ordered map driver",
		Long: `xtreemap drives the arena backed red-black ordered map.

Commands:
  demo      Insert squares, remove one, dump the tree and iterate
  bench     Fill and drain independent trees on a worker pool`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (default .xtreemap.yaml in CWD or $HOME)")
	flags.String("log-level", DefaultLogLevel, "log level: DEBUG, INFO, WARN or ERROR")
	flags.String("log-encoder", DefaultLogEncoder, "log encoder: json or text")
	flags.String("metrics", DefaultMetricsExporter, "metrics exporter: none, console or prometheus")
	flags.Duration("metrics-interval", DefaultMetricsInterval, "console metrics export interval")
	flags.Bool("desc", false, "order the keys descending")
	flags.Bool("remove-borrow-succ", false, "copy the successor instead of the predecessor on removal")
	flags.Uint32("arena-page-size", DefaultArenaPageSize, "nodes per arena page, rounded up to the power of 2")
	flags.Bool("stats", false, "record the tree metrics")

	rootCmd.AddCommand(newDemoCommand(s, &configPath))
	rootCmd.AddCommand(newBenchCommand(s, &configPath))
	return rootCmd
}
