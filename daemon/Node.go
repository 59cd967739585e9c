// Package daemon wires the chain store, the coin database, block assembly, block validation and the
// miner into a single Node that a harness run owns.
package daemon

import (
	"context"
	"sync"

	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/model"
	"github.com/bsv-blockchain/supplyfuzz/services/blockassembly"
	"github.com/bsv-blockchain/supplyfuzz/services/blockvalidation"
	"github.com/bsv-blockchain/supplyfuzz/services/miner"
	"github.com/bsv-blockchain/supplyfuzz/settings"
	"github.com/bsv-blockchain/supplyfuzz/stores/blockchain"
	"github.com/bsv-blockchain/supplyfuzz/stores/utxo"
	utxofactory "github.com/bsv-blockchain/supplyfuzz/stores/utxo/factory"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
)

type Node struct {
	logger        ulogger.Logger
	loggerFactory func(serviceName string) ulogger.Logger
	settings      *settings.Settings
	chain         blockchain.Store
	utxoStore     utxo.Store
	mempool       *blockassembly.Mempool
	assembler     *blockassembly.BlockAssembler
	notifier      *blockvalidation.Notifier
	validation    *blockvalidation.BlockValidation
	miner         *miner.Miner
	stopOnce      sync.Once
	stopErr       error
}

// NewNode starts a node on the genesis block of the configured network.
func NewNode(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, opts ...Option) (*Node, error) {
	if tSettings == nil || tSettings.ChainCfgParams == nil {
		return nil, errors.NewConfigurationError("node needs settings with chain params")
	}

	n := &Node{
		logger:   logger,
		settings: tSettings,
	}

	n.loggerFactory = func(serviceName string) ulogger.Logger {
		return logger.New(serviceName)
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.chain == nil {
		if tSettings.BlockChain.StoreURL == nil {
			return nil, errors.NewConfigurationError("no blockchain_store setting found")
		}

		chain, err := blockchain.NewStore(n.loggerFactory("blockchain"), tSettings.BlockChain.StoreURL, tSettings.ChainCfgParams)
		if err != nil {
			return nil, err
		}

		n.chain = chain
	}

	if n.utxoStore == nil {
		utxoStore, err := utxofactory.NewStore(ctx, n.loggerFactory("utxostore"), tSettings)
		if err != nil {
			return nil, err
		}

		n.utxoStore = utxoStore
	}

	n.mempool = blockassembly.NewMempool(n.loggerFactory("mempool"))
	n.assembler = blockassembly.NewBlockAssembler(n.loggerFactory("blockassembly"), tSettings, n.chain, n.mempool)
	n.notifier = blockvalidation.NewNotifier(ctx, n.loggerFactory("notifier"))
	n.validation = blockvalidation.NewBlockValidation(n.loggerFactory("blockvalidation"), tSettings, n.chain, n.utxoStore, n.mempool, n.notifier)
	n.miner = miner.NewMiner(n.loggerFactory("miner"), tSettings, n.validation, n.notifier, n)

	_, height, err := n.chain.GetBestBlockHeader(ctx)
	if err != nil {
		_ = n.Stop()
		return nil, errors.NewProcessingError("failed to read chain tip", err)
	}

	n.logger.Infof("[Node] started on %s at height %d", tSettings.ChainCfgParams.Name, height)

	return n, nil
}

// Stop shuts down the services and closes the coin database. Calling it again returns the first result.
func (n *Node) Stop() error {
	n.stopOnce.Do(func() {
		n.validation.Stop()
		n.notifier.Stop()

		if err := n.utxoStore.Close(); err != nil {
			n.stopErr = errors.NewStorageError("failed to close utxo store", err)
		}
	})

	return n.stopErr
}

func (n *Node) Settings() *settings.Settings {
	return n.settings
}

func (n *Node) Chain() blockchain.Store {
	return n.chain
}

func (n *Node) UtxoStore() utxo.Store {
	return n.utxoStore
}

func (n *Node) Mempool() *blockassembly.Mempool {
	return n.mempool
}

func (n *Node) Assembler() *blockassembly.BlockAssembler {
	return n.assembler
}

func (n *Node) Notifier() *blockvalidation.Notifier {
	return n.notifier
}

func (n *Node) Validation() *blockvalidation.BlockValidation {
	return n.validation
}

func (n *Node) Miner() *miner.Miner {
	return n.miner
}

func (n *Node) BestHeight(ctx context.Context) (uint32, error) {
	_, height, err := n.chain.GetBestBlockHeader(ctx)
	if err != nil {
		return 0, err
	}

	return height, nil
}

func (n *Node) BestHeader(ctx context.Context) (*model.BlockHeader, uint32, error) {
	return n.chain.GetBestBlockHeader(ctx)
}

// MedianTimePast returns the median time past of the current tip.
func (n *Node) MedianTimePast(ctx context.Context) (int64, error) {
	tip, _, err := n.chain.GetBestBlockHeader(ctx)
	if err != nil {
		return 0, err
	}

	return n.chain.GetMedianTimePast(ctx, tip.Hash())
}

func (n *Node) ComputeStatistics(ctx context.Context) (*utxo.Statistics, error) {
	return n.utxoStore.ComputeStatistics(ctx)
}
