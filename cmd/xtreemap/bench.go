package main

import (
	"context"
	"fmt"
	randv2 "math/rand/v2"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xtree/lib/infra"
	"github.com/benz9527/xtree/lib/tree"
	"github.com/benz9527/xtree/xlog"
)

func newBenchCommand(s streams, configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Fill and drain independent trees on a worker pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *configPath)
			if err != nil {
				return err
			}
			ctx := context.WithValue(cmd.Context(), commandCtxKey{}, "bench")
			return runApp(ctx, cfg, s, benchAction)
		},
	}
	cmd.Flags().Int("trees", DefaultBenchTrees, "number of independent trees")
	cmd.Flags().Int("keys", DefaultBenchKeys, "number of keys per tree")
	cmd.Flags().Int("workers", DefaultBenchWorkers, "worker pool size")
	return cmd
}

func benchAction(lc fx.Lifecycle, cfg *Config, s streams, logger xlog.XLogger) {
	lc.Append(fx.StartHook(func(ctx context.Context) error {
		res, err := runBench(ctx, cfg, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "trees: %d, keys: %d, max height: %d, elapsed: %s\n",
			res.trees, res.keys, res.maxHeight, res.elapsed)
		return nil
	}))
}

type benchResult struct {
	trees     int
	keys      int
	maxHeight int
	elapsed   time.Duration
}

// Each tree is owned by one task, the trees are not shared between
// the goroutines.
func benchTree(cfg *Config, seed uint64) (height int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = infra.NewErrorStack(fmt.Sprintf("bench tree panic: %v", r))
		}
	}()

	m := tree.NewRBTree[int, int](cfg.treeOptions()...)
	defer m.Release()

	rng := randv2.New(randv2.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	keys := rng.Perm(cfg.Bench.Keys)
	for _, key := range keys {
		m.Set(key, key)
	}
	if err = tree.Validate[int, int](m); err != nil {
		return 0, err
	}
	if int(m.Len()) != len(keys) {
		return 0, fmt.Errorf("tree size %d, expected %d", m.Len(), len(keys))
	}
	height = tree.Height[int, int](m)

	rng.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})
	for _, key := range keys[:len(keys)/2] {
		if !m.Remove(key) {
			return height, fmt.Errorf("key %d is missing", key)
		}
	}
	if err = tree.Validate[int, int](m); err != nil {
		return height, err
	}
	for !m.IsEmpty() {
		if _, _, err = m.RemoveMin(); err != nil {
			return height, err
		}
	}
	return height, nil
}

func runBench(ctx context.Context, cfg *Config, logger xlog.XLogger) (*benchResult, error) {
	pool, err := ants.NewPool(cfg.Bench.Workers,
		ants.WithPreAlloc(true),
		ants.WithLogger(xlog.NewAntsXLogger(logger)),
	)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var (
		wg        sync.WaitGroup
		lock      sync.Mutex
		errs      error
		maxHeight int
	)
	start := time.Now()
	for i := 0; i < cfg.Bench.Trees; i++ {
		seed := uint64(i + 1)
		wg.Add(1)
		if err = pool.Submit(func() {
			defer wg.Done()
			height, treeErr := benchTree(cfg, seed)
			lock.Lock()
			defer lock.Unlock()
			errs = multierr.Append(errs, treeErr)
			maxHeight = max(maxHeight, height)
		}); err != nil {
			wg.Done()
			lock.Lock()
			errs = multierr.Append(errs, err)
			lock.Unlock()
			break
		}
	}
	wg.Wait()

	res := &benchResult{
		trees:     cfg.Bench.Trees,
		keys:      cfg.Bench.Keys,
		maxHeight: maxHeight,
		elapsed:   time.Since(start),
	}
	if errs != nil {
		logger.ErrorContext(ctx, errs, "bench failed")
		return res, errs
	}
	logger.InfoContext(ctx, "bench done",
		zap.Int("trees", res.trees),
		zap.Int("keys", res.keys),
		zap.Int("maxHeight", res.maxHeight),
		zap.Duration("elapsed", res.elapsed),
	)
	return res, nil
}
