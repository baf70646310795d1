package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/delaneyj/watchparty/loop"
	"github.com/delaneyj/watchparty/reactive"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

type benchRow struct {
	Name          string
	Width, Height int
	Avg, Min      time.Duration
	P75, P99, Max time.Duration
}

func bench(ctx context.Context, cmd *cli.Command) error {
	p, err := setup(cmd)
	if err != nil {
		return err
	}

	log.Info("warming up")
	if _, err := runBench(ctx, p.Bench, cmd.Bool(loopKey), nil); err != nil {
		return err
	}

	rows, err := runBench(ctx, p.Bench, cmd.Bool(loopKey), nil)
	if err != nil {
		return err
	}

	tbl := table.NewWriter()
	tbl.SetTitle("Watcher propagation")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})
	for _, r := range rows {
		tbl.AppendRow(table.Row{r.Name, r.Avg, r.Min, r.P75, r.P99, r.Max})
	}
	tbl.Render()
	return nil
}

// runBench measures a single source write propagating through width chains
// of height lazy watchers, each chain ending in a leaf watcher. stats, when
// set, receives every System's counters once its case is done.
func runBench(ctx context.Context, cfg benchProfile, useLoop bool, stats func(reactive.Stats)) ([]benchRow, error) {
	var rows []benchRow
	for _, w := range cfg.Widths {
		for _, h := range cfg.Heights {
			var (
				row benchRow
				err error
			)
			if useLoop {
				row, err = benchOnLoop(ctx, cfg, w, h, stats)
			} else {
				row, err = benchCase(cfg, w, h, stats)
			}
			if err != nil {
				return nil, errors.Wrapf(err, "propagate %d * %d", w, h)
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

type chainGraph struct {
	sys    *reactive.System
	src    *reactive.Object
	leaves []*reactive.Watcher
}

func buildChains(sys *reactive.System, width, height int, sync bool) (*chainGraph, error) {
	g := &chainGraph{sys: sys, src: reactive.FromMap(map[string]any{"v": 1})}
	sys.Observe(g.src)

	var leafOpts []reactive.WatcherOption
	if sync {
		leafOpts = append(leafOpts, reactive.Sync())
	}

	for i := 0; i < width; i++ {
		last := func() int { return g.src.Get("v").(int) }
		for j := 0; j < height; j++ {
			prev := last
			c, err := sys.NewWatcher(nil, func(any) (any, error) {
				return prev() + 1, nil
			}, nil, reactive.Lazy(), reactive.Expression(fmt.Sprintf("chain[%d][%d]", i, j)))
			if err != nil {
				return nil, err
			}
			last = readComputed(sys, c)
		}

		tail := last
		leaf, err := sys.NewWatcher(nil, func(any) (any, error) {
			return tail(), nil
		}, nil, append(leafOpts, reactive.Expression(fmt.Sprintf("leaf[%d]", i)))...)
		if err != nil {
			return nil, err
		}
		g.leaves = append(g.leaves, leaf)
	}
	return g, nil
}

// readComputed reads a lazy watcher the way a derived property does:
// re-evaluate when dirty, then pass its dependencies on to the reader.
func readComputed(sys *reactive.System, c *reactive.Watcher) func() int {
	return func() int {
		if c.Dirty() {
			if err := c.Evaluate(); err != nil {
				sys.ReportError(err, c, "computed")
			}
		}
		if sys.Tracking() {
			c.Depend()
		}
		return c.Value().(int)
	}
}

func (g *chainGraph) write() {
	g.src.Put("v", g.src.Get("v").(int)+1)
}

func (g *chainGraph) verify(height int) error {
	want := g.src.Get("v").(int) + height
	for _, leaf := range g.leaves {
		if got := leaf.Value(); got != want {
			return errors.Errorf("leaf %s = %v, want %d", leaf.Expression(), got, want)
		}
	}
	return nil
}

func benchCase(cfg benchProfile, width, height int, stats func(reactive.Stats)) (benchRow, error) {
	sys := reactive.NewSystem(reactive.WithLogger(log))
	g, err := buildChains(sys, width, height, cfg.Sync)
	if err != nil {
		return benchRow{}, err
	}

	tach := tachymeter.New(&tachymeter.Config{Size: cfg.Iterations})
	for i := 0; i < cfg.Iterations; i++ {
		start := time.Now()
		g.write()
		sys.Tick()
		tach.AddTime(time.Since(start))
	}
	if err := g.verify(height); err != nil {
		return benchRow{}, err
	}
	if stats != nil {
		stats(sys.Stats())
	}
	return newBenchRow(width, height, tach.Calc()), nil
}

func benchOnLoop(ctx context.Context, cfg benchProfile, width, height int, stats func(reactive.Stats)) (benchRow, error) {
	l := loop.New(64, log)
	defer l.Close()
	go l.Run(ctx)

	var (
		sys *reactive.System
		g   *chainGraph
		err error
	)
	if doErr := l.Do(ctx, func() {
		sys = reactive.NewSystem(reactive.WithLogger(log), reactive.WithDefer(l.Defer))
		g, err = buildChains(sys, width, height, cfg.Sync)
	}); doErr != nil {
		return benchRow{}, doErr
	}
	if err != nil {
		return benchRow{}, err
	}

	tach := tachymeter.New(&tachymeter.Config{Size: cfg.Iterations})
	for i := 0; i < cfg.Iterations; i++ {
		start := time.Now()
		if err := l.Do(ctx, g.write); err != nil {
			return benchRow{}, err
		}
		tach.AddTime(time.Since(start))
	}

	var (
		st        reactive.Stats
		verifyErr error
	)
	if err := l.Do(ctx, func() {
		verifyErr = g.verify(height)
		st = sys.Stats()
	}); err != nil {
		return benchRow{}, err
	}
	if verifyErr != nil {
		return benchRow{}, verifyErr
	}
	if stats != nil {
		stats(st)
	}
	return newBenchRow(width, height, tach.Calc()), nil
}

func newBenchRow(width, height int, calc *tachymeter.Metrics) benchRow {
	return benchRow{
		Name:   fmt.Sprintf("propagate: %d * %d", width, height),
		Width:  width,
		Height: height,
		Avg:    calc.Time.Avg,
		Min:    calc.Time.Min,
		P75:    calc.Time.P75,
		P99:    calc.Time.P99,
		Max:    calc.Time.Max,
	}
}
