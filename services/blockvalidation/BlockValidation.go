// Package blockvalidation checks submitted blocks against the consensus rules, connects valid blocks
// to the coin database and the chain, and publishes a BlockCheckedEvent for every block it looked at.
package blockvalidation

import (
	"context"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/go-chaincfg"
	safeconversion "github.com/bsv-blockchain/go-safe-conversion"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/model"
	"github.com/bsv-blockchain/supplyfuzz/services/validator"
	"github.com/bsv-blockchain/supplyfuzz/settings"
	"github.com/bsv-blockchain/supplyfuzz/stores/blockchain"
	"github.com/bsv-blockchain/supplyfuzz/stores/utxo"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
	"github.com/bsv-blockchain/supplyfuzz/util"
	"github.com/jellydator/ttlcache/v3"
)

// MinedTxRemover is told about every block connected to the chain.
type MinedTxRemover interface {
	RemoveMined(block *model.Block)
}

type BlockValidation struct {
	logger          ulogger.Logger
	settings        *settings.Settings
	params          *chaincfg.Params
	blockchainStore blockchain.Store
	utxoStore       utxo.Store
	mempool         MinedTxRemover
	txValidator     *validator.TxValidator
	notifier        *Notifier
	invalidBlocks   *ttlcache.Cache[chainhash.Hash, error]

	// blocks are processed one at a time
	mu sync.Mutex
}

func NewBlockValidation(logger ulogger.Logger, tSettings *settings.Settings, blockchainStore blockchain.Store, utxoStore utxo.Store,
	mempool MinedTxRemover, notifier *Notifier) *BlockValidation {
	initPrometheusMetrics()

	invalidBlocks := ttlcache.New[chainhash.Hash, error](
		ttlcache.WithTTL[chainhash.Hash, error](tSettings.BlockValidation.InvalidBlockTTL),
	)

	go invalidBlocks.Start()

	return &BlockValidation{
		logger:          logger,
		settings:        tSettings,
		params:          tSettings.ChainCfgParams,
		blockchainStore: blockchainStore,
		utxoStore:       utxoStore,
		mempool:         mempool,
		txValidator:     validator.NewTxValidator(logger, tSettings),
		notifier:        notifier,
		invalidBlocks:   invalidBlocks,
	}
}

// ProcessBlock validates block and, when valid, connects it on top of the current tip.
//
// newBlock reports whether the block was seen for the first time, processed whether it is part of the
// chain when the call returns. A block already in the chain returns (false, true, nil) without an
// event. A rejected block returns (true, false, nil), or (false, false, nil) when it was rejected
// before; both publish an event carrying the reason. err is only set for infrastructure failures.
//
// Without forceProcessing a block that does not build on the tip is dropped without being
// remembered as invalid, since it may become valid once its parent arrives.
func (u *BlockValidation) ProcessBlock(ctx context.Context, block *model.Block, forceProcessing bool) (newBlock bool, processed bool, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	start := time.Now()
	defer func() {
		prometheusBlockValidationProcessBlock.Observe(time.Since(start).Seconds())
	}()

	block = block.Clone()
	hash := block.Hash()

	exists, err := u.blockchainStore.GetBlockExists(ctx, hash)
	if err != nil {
		return false, false, errors.NewProcessingError("[ProcessBlock][%s] failed to check block existence", hash, err)
	}

	if exists {
		prometheusBlockValidationBlocks.WithLabelValues("duplicate").Inc()
		u.logger.Debugf("[ProcessBlock][%s] block already in chain", hash)

		return false, true, nil
	}

	if item := u.invalidBlocks.Get(*hash); item != nil {
		prometheusBlockValidationBlocks.WithLabelValues("known_invalid").Inc()
		u.logger.Debugf("[ProcessBlock][%s] block already known to be invalid: %v", hash, item.Value())

		u.notifier.Publish(BlockCheckedEvent{Hash: *hash, Err: item.Value()})

		return false, false, nil
	}

	if !forceProcessing {
		if err = u.checkExtendsTip(ctx, block); err != nil {
			u.notifier.Publish(BlockCheckedEvent{Hash: *hash, Err: err})

			if !errors.IsBlockRejection(err) {
				return true, false, err
			}

			prometheusBlockValidationBlocks.WithLabelValues("ignored").Inc()
			u.logger.Infof("[ProcessBlock][%s] ignoring block that does not extend the tip", hash)

			return true, false, nil
		}
	}

	if err = u.ValidateAndConnect(ctx, block); err != nil {
		u.notifier.Publish(BlockCheckedEvent{Hash: *hash, Err: err})

		if !errors.IsBlockRejection(err) {
			prometheusBlockValidationBlocks.WithLabelValues("error").Inc()
			return true, false, err
		}

		prometheusBlockValidationBlocks.WithLabelValues("rejected").Inc()
		u.invalidBlocks.Set(*hash, err, ttlcache.DefaultTTL)
		u.logger.Infof("[ProcessBlock][%s] block rejected: %v", hash, err)

		return true, false, nil
	}

	prometheusBlockValidationBlocks.WithLabelValues("accepted").Inc()
	u.notifier.Publish(BlockCheckedEvent{Hash: *hash})

	return true, true, nil
}

func (u *BlockValidation) checkExtendsTip(ctx context.Context, block *model.Block) error {
	tip, _, err := u.blockchainStore.GetBestBlockHeader(ctx)
	if err != nil {
		return errors.NewProcessingError("failed to get best block header", err)
	}

	if block.Header.HashPrevBlock == nil || !block.Header.HashPrevBlock.IsEqual(tip.Hash()) {
		return errors.NewBlockInvalidError("bad-prevblk: block builds on %v, tip is %s", block.Header.HashPrevBlock, tip.Hash())
	}

	return nil
}

// ValidateAndConnect runs every block check and, when all pass, connects the block to the coin
// database and the chain store. Rule violations are returned as block or transaction errors, see
// errors.IsBlockRejection.
func (u *BlockValidation) ValidateAndConnect(ctx context.Context, block *model.Block) error {
	hash := block.Hash()

	if err := u.checkBlock(block); err != nil {
		return err
	}

	if err := u.checkExtendsTip(ctx, block); err != nil {
		return err
	}

	tip, tipHeight, err := u.blockchainStore.GetBestBlockHeader(ctx)
	if err != nil {
		return errors.NewProcessingError("failed to get best block header", err)
	}

	height := tipHeight + 1
	block.Height = height

	if err = u.checkHeader(ctx, block, tip); err != nil {
		return err
	}

	if uint64(height) >= uint64(u.params.BIP0034Height) {
		coinbaseHeight, err := util.ExtractCoinbaseHeight(block.CoinbaseTx())
		if err != nil {
			return errors.NewBlockInvalidError("bad-cb-height: %s", hash, err)
		}

		if coinbaseHeight != height {
			return errors.NewBlockInvalidError("bad-cb-height: coinbase claims height %d at height %d", coinbaseHeight, height)
		}
	}

	if err = checkCommitment(block); err != nil {
		return err
	}

	fees, err := u.checkTransactions(ctx, block, height)
	if err != nil {
		return err
	}

	subsidy := util.GetBlockSubsidyForHeight(height, u.params)

	if coinbaseValue := block.CoinbaseTx().TotalOutputSatoshis(); coinbaseValue > subsidy+fees {
		return errors.NewBlockInvalidError("bad-cb-amount: coinbase pays %d, limit is %d", coinbaseValue, subsidy+fees)
	}

	if err = u.utxoStore.ConnectBlock(ctx, block, height); err != nil {
		return errors.NewProcessingError("[ValidateAndConnect][%s] failed to connect block to utxo store", hash, err)
	}

	if _, err = u.blockchainStore.StoreBlock(ctx, block); err != nil {
		return errors.NewProcessingError("[ValidateAndConnect][%s] failed to store block", hash, err)
	}

	if u.mempool != nil {
		u.mempool.RemoveMined(block)
	}

	u.logger.Infof("[ValidateAndConnect][%s] connected block at height %d with %d transactions", hash, height, len(block.Transactions))

	return nil
}

// checkBlock performs the checks that need nothing but the block itself.
func (u *BlockValidation) checkBlock(block *model.Block) error {
	ok, hash, err := block.Header.HasMetTargetDifficulty()
	if err != nil {
		return err
	}

	if !ok {
		return errors.NewBlockInvalidError("high-hash: %s does not meet target %s", hash, block.Header.Bits)
	}

	if len(block.Transactions) == 0 {
		return errors.NewBlockInvalidError("bad-blk-length: block %s has no transactions", hash)
	}

	if err = u.txValidator.CheckCoinbase(block.CoinbaseTx()); err != nil {
		return err
	}

	for i, tx := range block.Transactions[1:] {
		if tx.IsCoinbase() {
			return errors.NewBlockInvalidError("bad-cb-multiple: transaction %d of %s is a coinbase", i+1, hash)
		}
	}

	if err = block.CheckMerkleRoot(); err != nil {
		return err
	}

	seen := make(map[chainhash.Hash]struct{}, len(block.Transactions))

	for _, tx := range block.Transactions {
		txid := *tx.TxIDChainHash()

		if _, exists := seen[txid]; exists {
			return errors.NewBlockInvalidError("bad-txns-duplicate: %s appears twice in %s", txid, hash)
		}

		seen[txid] = struct{}{}
	}

	for _, tx := range block.Transactions[1:] {
		if err = u.txValidator.CheckTransaction(tx); err != nil {
			return err
		}
	}

	return nil
}

func (u *BlockValidation) checkHeader(ctx context.Context, block *model.Block, tip *model.BlockHeader) error {
	if block.Header.Bits.Uint32() != u.params.PowLimitBits {
		return errors.NewBlockInvalidError("bad-diffbits: %s, expected %08x", block.Header.Bits, u.params.PowLimitBits)
	}

	mtp, err := u.blockchainStore.GetMedianTimePast(ctx, tip.Hash())
	if err != nil {
		return errors.NewProcessingError("failed to get median time past of %s", tip.Hash(), err)
	}

	if int64(block.Header.Timestamp) <= mtp {
		return errors.NewBlockInvalidError("time-too-old: %d is not after median time past %d", block.Header.Timestamp, mtp)
	}

	if maxFuture := u.settings.BlockChain.MaxFutureBlockTime; maxFuture > 0 {
		if int64(block.Header.Timestamp) > time.Now().Unix()+int64(maxFuture) {
			return errors.NewBlockInvalidError("time-too-new: %d is more than %ds in the future", block.Header.Timestamp, maxFuture)
		}
	}

	return nil
}

// checkCommitment requires the extended transaction commitment whenever the block holds more than the
// coinbase, and checks it whenever it is present.
func checkCommitment(block *model.Block) error {
	committed, ok := block.ExtendedTxCommitment()
	if !ok {
		if block.HasNonCoinbaseTransactions() {
			return errors.NewBlockInvalidError("bad-extended-commitment-missing: block %s", block.Hash())
		}

		return nil
	}

	if calculated := block.CalculateExtendedTxRoot(); !calculated.IsEqual(committed) {
		return errors.NewBlockInvalidError("bad-extended-commitment: committed %s, calculated %s", committed, calculated)
	}

	return nil
}

// checkTransactions resolves every input against the outputs created earlier in the block or the coin
// database, validates each non-coinbase transaction, and returns the total fee.
func (u *BlockValidation) checkTransactions(ctx context.Context, block *model.Block, height uint32) (uint64, error) {
	for _, tx := range block.Transactions {
		hasUnspent, err := u.utxoStore.HasUnspentOutputs(ctx, tx.TxIDChainHash())
		if err != nil {
			return 0, errors.NewProcessingError("failed to check unspent outputs of %s", tx.TxID(), err)
		}

		if hasUnspent {
			return 0, errors.NewBlockInvalidError("bad-txns-BIP30: %s overwrites unspent outputs", tx.TxID())
		}
	}

	view := make(map[model.Outpoint]*utxo.Coin)
	spent := make(map[model.Outpoint]struct{})

	addOutputs := func(tx *bt.Tx, isCoinbase bool) error {
		txid := tx.TxIDChainHash()

		for vout, output := range tx.Outputs {
			if utxo.IsUnspendable(output) {
				continue
			}

			index, err := safeconversion.IntToUint32(vout)
			if err != nil {
				return errors.NewProcessingError("output index out of range", err)
			}

			outpoint := model.NewOutpoint(txid, index)
			view[outpoint] = &utxo.Coin{Outpoint: outpoint, Output: output, Height: height, IsCoinbase: isCoinbase}
		}

		return nil
	}

	if err := addOutputs(block.CoinbaseTx(), true); err != nil {
		return 0, err
	}

	var fees uint64

	for _, tx := range block.Transactions[1:] {
		coins := make([]*utxo.Coin, 0, len(tx.Inputs))

		for _, input := range tx.Inputs {
			outpoint := model.NewOutpoint(input.PreviousTxIDChainHash(), input.PreviousTxOutIndex)

			if _, ok := spent[outpoint]; ok {
				return 0, errors.NewTxInvalidError("bad-txns-inputs-missingorspent: %s spends %s twice in block", tx.TxID(), outpoint)
			}

			coin, ok := view[outpoint]
			if !ok {
				var err error

				coin, err = u.utxoStore.GetCoin(ctx, outpoint)
				if err != nil {
					if errors.Is(err, errors.ErrUtxoNotFound) {
						return 0, errors.NewTxInvalidError("bad-txns-inputs-missingorspent: %s spends missing %s", tx.TxID(), outpoint, err)
					}

					return 0, errors.NewProcessingError("failed to look up %s", outpoint, err)
				}
			}

			spent[outpoint] = struct{}{}

			coins = append(coins, coin)
		}

		fee, err := u.txValidator.ValidateTransaction(tx, height, coins)
		if err != nil {
			return 0, err
		}

		if fees+fee < fees {
			return 0, errors.NewBlockInvalidError("bad-txns-accumulated-fee-outofrange: block %s", block.Hash())
		}

		fees += fee

		if err = addOutputs(tx, false); err != nil {
			return 0, err
		}
	}

	return fees, nil
}

func (u *BlockValidation) Stop() {
	u.invalidBlocks.Stop()
}
