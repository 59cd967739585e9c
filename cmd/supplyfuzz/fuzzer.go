package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/supplyfuzz/daemon"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/settings"
	"github.com/bsv-blockchain/supplyfuzz/test/supplyfuzz"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
	"github.com/bsv-blockchain/supplyfuzz/util"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// fuzzer replays inputs on worker goroutines. Every input gets its own node, since a driver only runs
// once against a chain, and every node its own coin database.
type fuzzer struct {
	logger   ulogger.Logger
	settings *settings.Settings
	newNode  func(ctx context.Context, tSettings *settings.Settings) (*daemon.Node, error)
	nodes    atomic.Int64
	runs     atomic.Int64
	accepted atomic.Int64
	rejected atomic.Int64
	failures atomic.Int64
	crashDir string
}

func newFuzzer(logger ulogger.Logger, tSettings *settings.Settings) *fuzzer {
	f := &fuzzer{
		logger:   logger,
		settings: tSettings,
		crashDir: filepath.Join(tSettings.DataFolder, "crashers"),
	}

	f.newNode = func(ctx context.Context, nodeSettings *settings.Settings) (*daemon.Node, error) {
		return daemon.NewNode(ctx, logger, nodeSettings)
	}

	return f
}

// nodeSettings returns the settings for the id-th node. A sqlite file database is suffixed with id so
// nodes never share one. Other backends are returned unchanged.
func (f *fuzzer) nodeSettings(id int64) *settings.Settings {
	storeURL := f.settings.UtxoStore.UtxoStore
	if storeURL == nil || util.SQLEngine(storeURL.Scheme) != util.Sqlite {
		return f.settings
	}

	nodeURL := *storeURL
	nodeURL.Path = fmt.Sprintf("%s-%d", strings.TrimSuffix(storeURL.Path, "/"), id)

	tSettings := *f.settings
	tSettings.UtxoStore.UtxoStore = &nodeURL

	return &tSettings
}

// run stops at the first input that fails, invariant violation or not, and returns its error.
func (f *fuzzer) run(ctx context.Context, inputs []input) error {
	// every node empties the coin tables on open, so a shared server database allows one node at a time
	if storeURL := f.settings.UtxoStore.UtxoStore; storeURL != nil &&
		util.SQLEngine(storeURL.Scheme) == util.Postgres && f.settings.SupplyFuzz.Workers > 1 {
		return errors.NewConfigurationError("postgres coin database supports a single worker, got %d", f.settings.SupplyFuzz.Workers)
	}

	g, gCtx := errgroup.WithContext(ctx)
	util.SetWorkerLimit(g, f.settings.SupplyFuzz.Workers)

	for _, in := range inputs {
		if gCtx.Err() != nil {
			break
		}

		g.Go(func() error {
			return f.runOne(gCtx, in)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if ctx.Err() != nil {
		return errors.NewContextCanceledError("fuzzing interrupted", ctx.Err())
	}

	return nil
}

func (f *fuzzer) runOne(ctx context.Context, in input) error {
	node, err := f.newNode(ctx, f.nodeSettings(f.nodes.Inc()))
	if err != nil {
		return err
	}

	defer func() {
		if err := node.Stop(); err != nil {
			f.logger.Warnf("[%s] stopping node: %v", in.name, err)
		}
	}()

	driver := supplyfuzz.NewNodeDriver(f.logger.New(in.name), node)

	_, err = driver.Run(ctx, in.data)

	// a failed run still reports the blocks it got through
	report := driver.Report()

	f.runs.Inc()
	f.accepted.Add(int64(report.BlocksAccepted))
	f.rejected.Add(int64(report.BlocksRejected))

	if err == nil {
		f.logger.Debugf("[%s] height %d, circulation %d", in.name, report.Height, report.Circulation)
		return nil
	}

	if ctx.Err() != nil {
		return nil
	}

	f.failures.Inc()

	if errors.IsInvariantViolation(err) {
		path, saveErr := f.saveCrasher(in.data)
		if saveErr != nil {
			f.logger.Errorf("[%s] saving crasher: %v", in.name, saveErr)
		} else {
			f.logger.Errorf("[%s] invariant violated, input saved to %s", in.name, path)
		}
	}

	return errors.NewProcessingError("input %s failed", in.name, err)
}

// saveCrasher writes data under the crash directory, named by its hash.
func (f *fuzzer) saveCrasher(data []byte) (string, error) {
	if err := os.MkdirAll(f.crashDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(f.crashDir, chainhash.HashH(data).String())

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}

	return path, nil
}
