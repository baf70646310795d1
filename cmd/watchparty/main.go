package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

const (
	configKey     = "config"
	iterationsKey = "iterations"
	logLevelKey   = "log-level"
	loopKey       = "loop"
	outKey        = "out"
)

var log = logrus.New()

func main() {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cmd := &cli.Command{
		Name:  "watchparty",
		Usage: "Benchmark and stress the reactive engine",
		Commands: []*cli.Command{
			{
				Name:   "bench",
				Usage:  "Propagation latency through chains of derived watchers",
				Flags:  append(commonFlags(), benchFlags()...),
				Action: bench,
			},
			{
				Name:   "stress",
				Usage:  "Throughput of a layered dynamic dependency graph",
				Flags:  commonFlags(),
				Action: stress,
			},
			{
				Name:  "report",
				Usage: "Run the benchmarks and write a markdown report",
				Flags: append(append(commonFlags(), benchFlags()...), &cli.StringFlag{
					Name:  outKey,
					Usage: "Report file, stdout when empty",
				}),
				Action: report,
			},
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Fatal("watchparty failed")
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  configKey,
			Usage: "YAML profile overriding the built-in benchmark settings",
		},
		&cli.StringFlag{
			Name:  logLevelKey,
			Usage: "Log level",
			Value: "info",
		},
	}
}

func benchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.UintFlag{
			Name:  iterationsKey,
			Usage: "Writes per benchmark case, overrides the profile",
		},
		&cli.BoolFlag{
			Name:  loopKey,
			Usage: "Drive the engine from an event loop instead of explicit ticks",
		},
	}
}

// setup applies the logging flags and loads the profile.
func setup(cmd *cli.Command) (*profile, error) {
	lvl, err := logrus.ParseLevel(cmd.String(logLevelKey))
	if err != nil {
		return nil, err
	}
	log.SetLevel(lvl)

	p, err := loadProfile(cmd.String(configKey))
	if err != nil {
		return nil, err
	}
	if n := cmd.Uint(iterationsKey); n > 0 {
		p.Bench.Iterations = int(n)
	}
	return p, nil
}
