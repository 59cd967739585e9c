// Package miner grinds block headers until they meet their target and submits the solved block,
// reporting whether the node accepted it.
package miner

import (
	"context"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/model"
	"github.com/bsv-blockchain/supplyfuzz/services/blockvalidation"
	"github.com/bsv-blockchain/supplyfuzz/settings"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
)

type BlockProcessor interface {
	ProcessBlock(ctx context.Context, block *model.Block, forceProcessing bool) (newBlock bool, processed bool, err error)
}

type Notifier interface {
	Subscribe(o blockvalidation.Observer)
	Unsubscribe(o blockvalidation.Observer)
	Sync(ctx context.Context) error
}

type ChainView interface {
	BestHeight(ctx context.Context) (uint32, error)
}

type TemplateAssembler interface {
	BuildTemplate(ctx context.Context, coinbaseScript *bscript.Script) (*model.Block, error)
}

// Outcome is the result of a submission. Coinbase is only set when the block was accepted and points
// at output 0 of its coinbase.
type Outcome struct {
	Accepted bool
	Coinbase *model.Outpoint
}

type Miner struct {
	logger    ulogger.Logger
	settings  *settings.Settings
	processor BlockProcessor
	notifier  Notifier
	chain     ChainView
}

func NewMiner(logger ulogger.Logger, tSettings *settings.Settings, processor BlockProcessor, notifier Notifier, chain ChainView) *Miner {
	initPrometheusMetrics()

	return &Miner{
		logger:    logger,
		settings:  tSettings,
		processor: processor,
		notifier:  notifier,
		chain:     chain,
	}
}

// Grind increments the nonce of block, starting from its current value, until the header hash meets
// the target encoded in its bits. Only the nonce changes.
func (m *Miner) Grind(ctx context.Context, block *model.Block) error {
	start := time.Now()
	defer func() {
		prometheusMinerGrind.Observe(float64(time.Since(start).Microseconds()) / 1_000_000)
	}()

	limit := ^uint32(0)
	if m.settings.Miner.MaxNonce > 0 {
		limit = m.settings.Miner.MaxNonce
	}

	for {
		select {
		case <-ctx.Done():
			return errors.NewContextCanceledError("[Grind] canceled at nonce %d", block.Header.Nonce, ctx.Err())
		default:
		}

		ok, _, err := block.Header.HasMetTargetDifficulty()
		if err != nil {
			return errors.NewProcessingError("[Grind] failed to check target", err)
		}

		if ok {
			return nil
		}

		if block.Header.Nonce >= limit {
			return errors.NewNonceExhaustedError("[Grind] no nonce up to %d meets target %s", limit, block.Header.Bits)
		}

		block.Header.Nonce++
	}
}

// Submit hands a solved block to the processor and reports whether it was accepted. The accept or
// reject decision is taken from the block checked event for this block's hash, and the chain must
// have grown by exactly one block when it was accepted and not at all otherwise.
func (m *Miner) Submit(ctx context.Context, block *model.Block) (*Outcome, error) {
	hash := block.Hash()

	oldHeight, err := m.chain.BestHeight(ctx)
	if err != nil {
		return nil, errors.NewProcessingError("[Submit][%s] failed to get best height", hash, err)
	}

	catcher := newStateCatcher(*hash)

	m.notifier.Subscribe(catcher)

	newBlock, processed, err := m.processor.ProcessBlock(ctx, block, true)
	if err != nil {
		m.notifier.Unsubscribe(catcher)
		return nil, errors.NewProcessingError("[Submit][%s] failed to process block", hash, err)
	}

	if !newBlock && processed {
		m.notifier.Unsubscribe(catcher)
		return nil, errors.NewDuplicateAcceptedError("[Submit][%s] block was already part of the chain", hash)
	}

	m.notifier.Unsubscribe(catcher)

	if err = m.notifier.Sync(ctx); err != nil {
		return nil, err
	}

	event, ok := catcher.read()
	accepted := ok && event.IsValid()

	newHeight, err := m.chain.BestHeight(ctx)
	if err != nil {
		return nil, errors.NewProcessingError("[Submit][%s] failed to get best height", hash, err)
	}

	expected := oldHeight
	if accepted {
		expected++
	}

	if newHeight != expected {
		return nil, errors.NewHeightDeltaError("[Submit][%s] height went from %d to %d, accepted=%t", hash, oldHeight, newHeight, accepted)
	}

	outcome := &Outcome{Accepted: accepted}

	if !accepted {
		prometheusMinerBlocks.WithLabelValues("rejected").Inc()

		if ok {
			m.logger.Debugf("[Submit][%s] rejected: %v", hash, event.Err)
		} else {
			m.logger.Debugf("[Submit][%s] rejected without an event", hash)
		}

		return outcome, nil
	}

	prometheusMinerBlocks.WithLabelValues("accepted").Inc()

	coinbase := model.NewOutpoint(block.CoinbaseTx().TxIDChainHash(), 0)
	outcome.Coinbase = &coinbase

	m.logger.Debugf("[Submit][%s] accepted at height %d", hash, newHeight)

	return outcome, nil
}

// Mine grinds and submits block.
func (m *Miner) Mine(ctx context.Context, block *model.Block) (*Outcome, error) {
	if err := m.Grind(ctx, block); err != nil {
		return nil, err
	}

	return m.Submit(ctx, block)
}

// GenerateBlock mines a fresh template paying to coinbaseScript and fails unless it is accepted.
func (m *Miner) GenerateBlock(ctx context.Context, assembler TemplateAssembler, coinbaseScript *bscript.Script) (*model.Block, error) {
	block, err := assembler.BuildTemplate(ctx, coinbaseScript)
	if err != nil {
		return nil, err
	}

	outcome, err := m.Mine(ctx, block)
	if err != nil {
		return nil, err
	}

	if !outcome.Accepted {
		return nil, errors.NewBlockInvalidError("[GenerateBlock][%s] generated block was rejected", block.Hash())
	}

	return block, nil
}

// stateCatcher keeps the last event seen for one block hash.
type stateCatcher struct {
	hash  chainhash.Hash
	state chan blockvalidation.BlockCheckedEvent
}

func newStateCatcher(hash chainhash.Hash) *stateCatcher {
	return &stateCatcher{
		hash:  hash,
		state: make(chan blockvalidation.BlockCheckedEvent, 1),
	}
}

func (c *stateCatcher) BlockChecked(event blockvalidation.BlockCheckedEvent) {
	if event.Hash != c.hash {
		return
	}

	// only the notifier goroutine writes, so drain and send cannot race
	select {
	case <-c.state:
	default:
	}

	c.state <- event
}

func (c *stateCatcher) read() (blockvalidation.BlockCheckedEvent, bool) {
	select {
	case event := <-c.state:
		return event, true
	default:
		return blockvalidation.BlockCheckedEvent{}, false
	}
}
