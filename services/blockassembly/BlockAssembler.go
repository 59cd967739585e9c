// Package blockassembly builds block templates on top of the chain tip: a coinbase claiming the
// subsidy plus mempool fees, every mempool transaction, and the extended transaction commitment.
package blockassembly

import (
	"context"
	"time"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/go-chaincfg"
	safeconversion "github.com/bsv-blockchain/go-safe-conversion"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/model"
	"github.com/bsv-blockchain/supplyfuzz/settings"
	"github.com/bsv-blockchain/supplyfuzz/stores/blockchain"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
	"github.com/bsv-blockchain/supplyfuzz/util"
)

// templateVersion is the header version of every template.
const templateVersion = 0x20000000

type BlockAssembler struct {
	logger          ulogger.Logger
	settings        *settings.Settings
	params          *chaincfg.Params
	blockchainStore blockchain.Store
	mempool         *Mempool
}

func NewBlockAssembler(logger ulogger.Logger, tSettings *settings.Settings, blockchainStore blockchain.Store, mempool *Mempool) *BlockAssembler {
	initPrometheusMetrics()

	return &BlockAssembler{
		logger:          logger,
		settings:        tSettings,
		params:          tSettings.ChainCfgParams,
		blockchainStore: blockchainStore,
		mempool:         mempool,
	}
}

// BuildTemplate returns an unsolved block on top of the current tip. The coinbase pays subsidy plus
// fees to coinbaseScript in output 0 and carries the extended transaction commitment as its last
// output, even when the block holds no other transaction.
func (b *BlockAssembler) BuildTemplate(ctx context.Context, coinbaseScript *bscript.Script) (*model.Block, error) {
	start := time.Now()
	defer func() {
		prometheusBlockAssemblerBuildTemplate.Observe(time.Since(start).Seconds())
	}()

	if coinbaseScript == nil {
		return nil, errors.NewInvalidArgumentError("coinbase locking script is required")
	}

	tip, tipHeight, err := b.blockchainStore.GetBestBlockHeader(ctx)
	if err != nil {
		return nil, errors.NewProcessingError("error getting best block header", err)
	}

	height := tipHeight + 1

	mtp, err := b.blockchainStore.GetMedianTimePast(ctx, tip.Hash())
	if err != nil {
		return nil, errors.NewProcessingError("error getting median time past of %s", tip.Hash(), err)
	}

	timestamp, err := templateTimestamp(time.Now().Unix(), mtp)
	if err != nil {
		return nil, err
	}

	txs, fees := b.mempool.Transactions()

	coinbaseValue := util.GetBlockSubsidyForHeight(height, b.params) + fees

	coinbaseSigScript, err := util.BuildCoinbaseScript(int64(height), b.settings.Coinbase.ArbitraryText)
	if err != nil {
		return nil, err
	}

	coinbaseTx, err := util.NewCoinbaseTx(coinbaseSigScript, &bt.Output{
		Satoshis:      coinbaseValue,
		LockingScript: coinbaseScript,
	})
	if err != nil {
		return nil, err
	}

	block := model.NewBlock(&model.BlockHeader{
		Version:        templateVersion,
		HashPrevBlock:  tip.Hash(),
		HashMerkleRoot: &chainhash.Hash{},
		Timestamp:      timestamp,
		Bits:           model.NewNBitFromUint32(b.params.PowLimitBits),
	}, append([]*bt.Tx{coinbaseTx}, txs...), height)

	if err = b.RegenerateCommitment(block, tip); err != nil {
		return nil, err
	}

	prometheusBlockAssemblerTemplates.Inc()

	b.logger.Debugf("[BlockAssembler] built template at height %d on %s with %d transactions, coinbase value %d",
		height, tip.Hash(), len(block.Transactions), coinbaseValue)

	return block, nil
}

// RegenerateCommitment replaces the coinbase's extended transaction commitment with one over the
// block's current transactions and recomputes the merkle root. parent must be the header the block
// builds on.
func (b *BlockAssembler) RegenerateCommitment(block *model.Block, parent *model.BlockHeader) error {
	coinbase := block.CoinbaseTx()
	if coinbase == nil {
		return errors.NewInvalidArgumentError("block has no coinbase")
	}

	if block.Header.HashPrevBlock == nil || parent == nil || !block.Header.HashPrevBlock.IsEqual(parent.Hash()) {
		return errors.NewInvalidArgumentError("block does not build on the given parent")
	}

	if idx := block.ExtendedTxCommitmentIndex(); idx >= 0 {
		coinbase.Outputs = append(coinbase.Outputs[:idx], coinbase.Outputs[idx+1:]...)
	}

	coinbase.AddOutput(&bt.Output{
		Satoshis:      0,
		LockingScript: model.ExtendedTxCommitmentScript(block.CalculateExtendedTxRoot()),
	})

	block.UpdateMerkleRoot()

	return nil
}

// templateTimestamp is the current time, moved past the median time past when the clock lags behind.
func templateTimestamp(now, medianTimePast int64) (uint32, error) {
	if now <= medianTimePast {
		now = medianTimePast + 1
	}

	if now < 0 {
		return 0, errors.NewProcessingError("negative template timestamp %d", now)
	}

	ts, err := safeconversion.Uint64ToUint32(uint64(now))
	if err != nil {
		return 0, errors.NewProcessingError("template timestamp %d out of range", now, err)
	}

	return ts, nil
}
