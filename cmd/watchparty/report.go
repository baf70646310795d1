package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/delaneyj/watchparty/cmd/watchparty/templates"
	"github.com/delaneyj/watchparty/promstats"
	"github.com/delaneyj/watchparty/reactive"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

func report(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	p, err := setup(cmd)
	if err != nil {
		return err
	}
	useLoop := cmd.Bool(loopKey)

	var total reactive.Stats
	rows, err := runBench(ctx, p.Bench, useLoop, func(st reactive.Stats) {
		total = addStats(total, st)
	})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	if err := reg.Register(promstats.New("watchparty", prometheus.Labels{"command": "report"}, func() reactive.Stats {
		return total
	})); err != nil {
		return errors.Wrap(err, "register stats collector")
	}
	metrics, err := gatherMetrics(reg)
	if err != nil {
		return err
	}

	data := &templates.ReportData{
		Title:     "Watcher propagation",
		Generated: time.Now(),
		Loop:      useLoop,
		Metrics:   metrics,
	}
	for _, r := range rows {
		data.Bench = append(data.Bench, templates.BenchRow{
			Name: r.Name,
			Avg:  r.Avg,
			Min:  r.Min,
			P75:  r.P75,
			P99:  r.P99,
			Max:  r.Max,
		})
	}

	var w io.Writer = os.Stdout
	if out := cmd.String(outKey); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return errors.Wrap(err, "create report")
		}
		defer f.Close()
		w = f
	}
	templates.WriteReport(w, data)

	log.WithField("took", time.Since(start)).Info("report written")
	return nil
}

func addStats(a, b reactive.Stats) reactive.Stats {
	a.Watchers += b.Watchers
	a.Flushes += b.Flushes
	a.Runs += b.Runs
	a.Runaways += b.Runaways
	a.Notifications += b.Notifications
	a.Errors += b.Errors
	a.Warnings += b.Warnings
	a.Queued += b.Queued
	return a
}

// gatherMetrics flattens the registry into single-value rows. Every metric
// the collector exports is unlabelled apart from the constant labels.
func gatherMetrics(g prometheus.Gatherer) ([]templates.Metric, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, errors.Wrap(err, "gather metrics")
	}
	var out []templates.Metric
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			v := m.GetCounter().GetValue()
			if m.GetGauge() != nil {
				v = m.GetGauge().GetValue()
			}
			out = append(out, templates.Metric{
				Name:  mf.GetName(),
				Help:  mf.GetHelp(),
				Value: v,
			})
		}
	}
	return out, nil
}
