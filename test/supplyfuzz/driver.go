// Package supplyfuzz drives a node with blocks built from fuzz input and checks after every block that
// the circulating supply it tracked itself equals the total recomputed from the coin database.
//
// A run bootstraps two blocks, the second with a coinbase script chosen to collide with the coinbase the
// node would write at a height drawn from the input, and then replays the rest of the input as a
// sequence of actions that add inputs, add transactions or mine the candidate block.
package supplyfuzz

import (
	"bytes"
	"context"

	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-chaincfg"
	"github.com/bsv-blockchain/supplyfuzz/daemon"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/model"
	"github.com/bsv-blockchain/supplyfuzz/settings"
	"github.com/bsv-blockchain/supplyfuzz/stores/utxo"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
	"github.com/bsv-blockchain/supplyfuzz/util"
	"github.com/bsv-blockchain/supplyfuzz/util/fuzzdata"
	"github.com/looplab/fsm"
)

type Action int

const (
	ActionAddInput Action = iota
	ActionAddTransaction
	ActionFinalizeBlock

	numActions
)

func (a Action) String() string {
	switch a {
	case ActionAddInput:
		return "add_input"
	case ActionAddTransaction:
		return "add_transaction"
	case ActionFinalizeBlock:
		return "finalize_block"
	default:
		return "unknown"
	}
}

const (
	stateBootstrapping = "bootstrapping"
	stateRunning       = "running"

	eventRun = "run"

	defaultMaturityFactor = 20
)

// DuplicateCoinbasePlan is the coinbase script the second bootstrap block carries. It is exactly the
// script the node writes at Height.
type DuplicateCoinbasePlan struct {
	Height int64
	Script *bscript.Script
}

type Report struct {
	Height         uint32
	Circulation    uint64
	LedgerSize     int
	Actions        [numActions]int
	BlocksAccepted int
	BlocksRejected int
	Plan           DuplicateCoinbasePlan

	// DuplicateCoinbaseMined is set once a block at the planned height was accepted.
	DuplicateCoinbaseMined bool
}

// Driver runs fuzz input against one node. A driver can only run once, since the chain it builds on
// is not reset.
type Driver struct {
	logger         ulogger.Logger
	params         *chaincfg.Params
	coinbaseText   string
	maturityFactor int64
	chain          ChainView
	statistician   UtxoStatistician
	builder        *BlockBuilder
	miner          BlockMiner
	ledger         *ShadowLedger
	fsm            *fsm.FSM
	current        *model.Block
	stats          *utxo.Statistics
	plan           DuplicateCoinbasePlan
	report         Report
}

func NewDriver(logger ulogger.Logger, tSettings *settings.Settings, chain ChainView, statistician UtxoStatistician,
	builder *BlockBuilder, miner BlockMiner) *Driver {
	initPrometheusMetrics()

	maturityFactor := int64(tSettings.SupplyFuzz.DuplicateCoinbaseMaturityFactor)
	if maturityFactor <= 0 {
		maturityFactor = defaultMaturityFactor
	}

	return &Driver{
		logger:         logger,
		params:         tSettings.ChainCfgParams,
		coinbaseText:   tSettings.Coinbase.ArbitraryText,
		maturityFactor: maturityFactor,
		chain:          chain,
		statistician:   statistician,
		builder:        builder,
		miner:          miner,
		ledger:         NewShadowLedger(),
		fsm:            newFiniteStateMachine(),
	}
}

// NewNodeDriver returns a driver using node for every collaborator.
func NewNodeDriver(logger ulogger.Logger, node *daemon.Node) *Driver {
	builder := NewBlockBuilder(node.Assembler(), node.Assembler(), node)

	return NewDriver(logger, node.Settings(), node, node, builder, node.Miner())
}

func newFiniteStateMachine() *fsm.FSM {
	return fsm.NewFSM(
		stateBootstrapping,
		fsm.Events{
			{
				Name: eventRun,
				Src:  []string{stateBootstrapping},
				Dst:  stateRunning,
			},
		},
		fsm.Callbacks{},
	)
}

func (d *Driver) State() string {
	return d.fsm.Current()
}

func (d *Driver) Ledger() *ShadowLedger {
	return d.ledger
}

// Run bootstraps the chain and then applies one action per value drawn from data until data is
// exhausted. Any returned error aborts the run. Invariant violations are recognised with
// errors.IsInvariantViolation.
func (d *Driver) Run(ctx context.Context, data []byte) (*Report, error) {
	if !d.fsm.Is(stateBootstrapping) {
		return nil, errors.NewStateError("driver already ran, state is %s", d.fsm.Current())
	}

	provider := fuzzdata.NewProvider(data)

	if err := d.bootstrap(ctx, provider); err != nil {
		return nil, err
	}

	if err := d.fsm.Event(ctx, eventRun); err != nil {
		return nil, errors.NewStateError("failed to start running", err)
	}

	for provider.RemainingBytes() > 0 {
		action := Action(provider.ConsumeIntInRange(0, int64(numActions-1)))

		if err := d.step(ctx, provider, action); err != nil {
			return nil, err
		}
	}

	prometheusSupplyFuzzRuns.Inc()

	report := d.Report()

	d.logger.Infof("[Run] finished at height %d, circulation %d, %d accepted and %d rejected blocks",
		report.Height, report.Circulation, report.BlocksAccepted, report.BlocksRejected)

	return report, nil
}

func (d *Driver) Report() *Report {
	report := d.report
	report.Circulation = d.ledger.Circulation()
	report.LedgerSize = d.ledger.Len()
	report.Plan = d.plan

	return &report
}

func (d *Driver) bootstrap(ctx context.Context, provider *fuzzdata.Provider) error {
	if err := d.prepareNext(ctx); err != nil {
		return err
	}

	if err := d.expectHeight(ctx, 0); err != nil {
		return err
	}

	if err := d.checkSupply(ctx); err != nil {
		return err
	}

	planHeight := provider.ConsumeIntInRange(0, d.maturityFactor*int64(d.params.CoinbaseMaturity))

	script, err := util.BuildCoinbaseScript(planHeight, d.coinbaseText)
	if err != nil {
		return err
	}

	d.plan = DuplicateCoinbasePlan{Height: planHeight, Script: script}

	d.logger.Infof("[bootstrap] duplicate coinbase planned at height %d: %s", planHeight, script)

	// the first block gives the chain a coinbase that later blocks can spend
	if err = d.prepareNext(ctx); err != nil {
		return err
	}

	accepted, err := d.finalize(ctx, d.current)
	if err != nil {
		return err
	}

	if !accepted {
		return errors.NewUnexpectedChainHeightError("[bootstrap] first block was rejected")
	}

	if err = d.prepareNext(ctx); err != nil {
		return err
	}

	crafted := d.current.Clone()
	crafted.CoinbaseTx().Inputs[0].UnlockingScript = bscript.NewFromBytes(bytes.Clone(*script))
	crafted.UpdateMerkleRoot()

	accepted, err = d.finalize(ctx, crafted)
	if err != nil {
		return err
	}

	switch {
	case accepted:
		d.current = crafted

		if err = d.ledger.RecordLast(crafted); err != nil {
			return err
		}

	case planHeight == 1:
		// the crafted coinbase is the unspent coinbase of block 1, so the node must refuse it
		d.logger.Infof("[bootstrap] duplicate of the height 1 coinbase rejected, mining a plain block")

		if err = d.prepareNext(ctx); err != nil {
			return err
		}

		if accepted, err = d.finalize(ctx, d.current); err != nil {
			return err
		}

		if !accepted {
			return errors.NewUnexpectedChainHeightError("[bootstrap] plain block at height 2 was rejected")
		}

	default:
		return errors.NewUnexpectedChainHeightError("[bootstrap] block with coinbase for height %d was rejected", planHeight)
	}

	if err = d.expectHeight(ctx, 2); err != nil {
		return err
	}

	return d.prepareNext(ctx)
}

func (d *Driver) step(ctx context.Context, provider *fuzzdata.Provider, action Action) error {
	switch action {
	case ActionAddInput, ActionAddTransaction:
		txo, err := d.ledger.PickRandom(provider)
		if err != nil {
			return err
		}

		var next *model.Block

		if action == ActionAddInput {
			next, err = d.builder.AppendInput(d.current, txo)
		} else {
			next, err = d.builder.AppendTransaction(d.current, txo)
		}

		if err != nil {
			return err
		}

		d.current = next

		if err = d.ledger.RecordLast(next); err != nil {
			return err
		}

		d.logger.Debugf("[step] %s spending %s", action, txo.Outpoint)

	case ActionFinalizeBlock:
		block, err := d.builder.RegenerateCommitments(ctx, d.current)
		if err != nil {
			return err
		}

		if _, err = d.finalize(ctx, block); err != nil {
			return err
		}

		if err = d.prepareNext(ctx); err != nil {
			return err
		}

	default:
		return errors.NewInvalidArgumentError("unknown action %d", action)
	}

	d.report.Actions[action]++
	prometheusSupplyFuzzActions.WithLabelValues(action.String()).Inc()

	return nil
}

// finalize mines block and checks the supply afterwards. A rejected block must leave the coin
// database untouched.
func (d *Driver) finalize(ctx context.Context, block *model.Block) (bool, error) {
	outcome, err := d.miner.Mine(ctx, block)
	if err != nil {
		return false, err
	}

	height, err := d.chain.BestHeight(ctx)
	if err != nil {
		return false, errors.NewProcessingError("[finalize] failed to get best height", err)
	}

	d.report.Height = height

	if outcome.Accepted {
		prometheusSupplyFuzzBlocks.WithLabelValues("accepted").Inc()

		d.report.BlocksAccepted++
		d.ledger.Credit(util.GetBlockSubsidyForHeight(height, d.params))

		if int64(height) == d.plan.Height {
			if err = d.checkPlannedCoinbase(block); err != nil {
				return false, err
			}

			d.report.DuplicateCoinbaseMined = true
		}
	} else {
		prometheusSupplyFuzzBlocks.WithLabelValues("rejected").Inc()

		d.report.BlocksRejected++
	}

	before := d.stats

	if err = d.checkSupply(ctx); err != nil {
		return false, err
	}

	if !outcome.Accepted && before != nil && before.Hash != d.stats.Hash {
		return false, errors.NewStatsChangedError("[finalize][%s] utxo set hash went from %s to %s", block.Hash(), before.Hash, d.stats.Hash).
			WithData("height", height)
	}

	d.logger.Debugf("[finalize][%s] accepted=%t height=%d circulation=%d", block.Hash(), outcome.Accepted, height, d.ledger.Circulation())

	return outcome.Accepted, nil
}

func (d *Driver) checkPlannedCoinbase(block *model.Block) error {
	coinbase := block.CoinbaseTx()
	if coinbase == nil || len(coinbase.Inputs) == 0 || coinbase.Inputs[0].UnlockingScript == nil {
		return errors.NewDuplicateCoinbaseMissedError("block %s at height %d has no coinbase input", block.Hash(), d.plan.Height)
	}

	if !bytes.Equal(*coinbase.Inputs[0].UnlockingScript, *d.plan.Script) {
		return errors.NewDuplicateCoinbaseMissedError("block %s at height %d has coinbase script %s, planned %s",
			block.Hash(), d.plan.Height, coinbase.Inputs[0].UnlockingScript, d.plan.Script)
	}

	return nil
}

func (d *Driver) checkSupply(ctx context.Context) error {
	stats, err := d.statistician.ComputeStatistics(ctx)
	if err != nil {
		return errors.NewProcessingError("failed to compute utxo statistics", err)
	}

	d.stats = stats

	prometheusSupplyFuzzCirculation.Set(float64(d.ledger.Circulation()))

	return d.ledger.AssertConsistentWith(stats.TotalAmount)
}

func (d *Driver) prepareNext(ctx context.Context) error {
	block, err := d.builder.PrepareNext(ctx)
	if err != nil {
		return err
	}

	d.current = block

	return d.ledger.RecordLast(block)
}

func (d *Driver) expectHeight(ctx context.Context, expected uint32) error {
	height, err := d.chain.BestHeight(ctx)
	if err != nil {
		return errors.NewProcessingError("failed to get best height", err)
	}

	if height != expected {
		return errors.NewUnexpectedChainHeightError("chain is at height %d, expected %d", height, expected)
	}

	return nil
}
