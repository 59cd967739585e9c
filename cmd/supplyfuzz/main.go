package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsv-blockchain/supplyfuzz/settings"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
	"github.com/ordishs/gocore"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

// Name used by build script for the binaries. (Please keep on single line)
const progname = "supplyfuzz"

// Version & commit strings injected at build with -ldflags -X...
var version string
var commit string

func init() {
	gocore.SetInfo(progname, version, commit)
}

func main() {
	tSettings := settings.NewSettings()
	logger := ulogger.New(progname, ulogger.WithLevel(tSettings.LogLevel))

	app := &cli.App{
		Name:      progname,
		Usage:     "replay fuzz inputs against fresh regtest nodes and check the total coin supply",
		ArgsUsage: "[corpus file or directory...]",
		Version:   version,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "runs",
				Usage: "number of generated inputs when no corpus is given",
				Value: 100,
			},
			&cli.IntFlag{
				Name:  "size",
				Usage: "maximum length of a generated input",
				Value: 64,
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "seed for generated inputs, 0 seeds from the clock",
			},
		},
		Action: func(c *cli.Context) error {
			return run(c, logger, tSettings)
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Errorf("%v", err)
		os.Exit(2)
	}
}

func run(c *cli.Context, logger ulogger.Logger, tSettings *settings.Settings) error {
	logger.Infof("VERSION %s (%s)", version, commit)

	prometheusEndpoint, ok := gocore.Config().Get("prometheusEndpoint")
	if ok && prometheusEndpoint != "" {
		metricsAddr, _ := gocore.Config().Get("metricsAddr", ":9091")

		logger.Infof("Starting prometheus endpoint on %s%s", metricsAddr, prometheusEndpoint)
		http.Handle(prometheusEndpoint, promhttp.Handler())

		go func() {
			server := &http.Server{Addr: metricsAddr, ReadHeaderTimeout: 10 * time.Second}
			logger.Fatalf("%v", server.ListenAndServe())
		}()
	}

	var (
		inputs []input
		err    error
	)

	if c.NArg() > 0 {
		inputs, err = loadCorpus(c.Args().Slice())
		if err != nil {
			return err
		}
	} else {
		seed := c.Uint64("seed")
		if seed == 0 {
			seed = uint64(time.Now().UnixNano()) //nolint:gosec // clock value is never negative
		}

		logger.Infof("generating %d inputs of up to %d bytes with seed %d", c.Int("runs"), c.Int("size"), seed)
		inputs = generateInputs(c.Int("runs"), c.Int("size"), seed)
	}

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	f := newFuzzer(logger, tSettings)

	err = f.run(ctx, inputs)

	logger.Infof("%d runs, %d blocks accepted, %d blocks rejected, %d failures",
		f.runs.Load(), f.accepted.Load(), f.rejected.Load(), f.failures.Load())

	return err
}
