package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/benz9527/xtree/lib/tree"
	"github.com/benz9527/xtree/xlog"
)

var demoKeys = []int{1, 2, 3, 4, 8, 7, 6, 5}

func newDemoCommand(s streams, configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Insert squares, remove one, dump the tree and iterate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *configPath)
			if err != nil {
				return err
			}
			ctx := context.WithValue(cmd.Context(), commandCtxKey{}, "demo")
			return runApp(ctx, cfg, s, demoAction)
		},
	}
	cmd.Flags().Bool("no-color", false, "dump without the ANSI colors")
	return cmd
}

func demoAction(lc fx.Lifecycle, cfg *Config, s streams, logger xlog.XLogger) {
	lc.Append(fx.StartHook(func(ctx context.Context) error {
		return runDemo(ctx, cfg, s, logger)
	}))
}

func runDemo(ctx context.Context, cfg *Config, s streams, logger xlog.XLogger) error {
	m := tree.NewRBTree[int, int](cfg.treeOptions()...)
	defer m.Release()

	for _, key := range demoKeys {
		m.Set(key, key*key)
	}
	m.Remove(8)
	logger.InfoContext(ctx, "demo tree built",
		zap.Int64("size", m.Len()),
		zap.Int("height", tree.Height[int, int](m)),
	)

	dumpOpts := make([]tree.RBDumpOpt, 0, 1)
	if cfg.Tree.NoColor {
		dumpOpts = append(dumpOpts, tree.WithRBDumpNoColor())
	}
	if err := m.Dump(s.out, dumpOpts...); err != nil {
		return err
	}

	val, err := m.Get(7)
	if err != nil {
		logger.ErrorStackContext(ctx, err, "demo lookup failed")
		return err
	}
	fmt.Fprintf(s.out, "7 * 7 = %d\n", val)

	for key, ref := range m.Entries() {
		fmt.Fprintf(s.out, "%d : %d\n", key, *ref)
		*ref *= 2
	}
	for key := range m.Keys() {
		fmt.Fprintf(s.out, "%d : %d\n", key, m.GetOrElse(key, 0))
	}

	if err = tree.Validate[int, int](m); err != nil {
		logger.ErrorContext(ctx, err, "demo tree violation")
		return err
	}
	return nil
}
