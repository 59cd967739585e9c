package supplyfuzz

import (
	"context"
	"math"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/model"
)

var (
	// templates pay to OP_FALSE so the assembler never produces a coinbase that is already unspent
	placeholderScript = []byte{bscript.OpFALSE}
	anyoneCanSpend    = []byte{bscript.OpTRUE}
)

// BlockBuilder turns templates into candidate blocks and mutates them. Every method that changes a
// block works on a copy and returns it.
type BlockBuilder struct {
	assembler   TemplateAssembler
	regenerator CommitmentRegenerator
	chain       ChainView
}

func NewBlockBuilder(assembler TemplateAssembler, regenerator CommitmentRegenerator, chain ChainView) *BlockBuilder {
	return &BlockBuilder{
		assembler:   assembler,
		regenerator: regenerator,
		chain:       chain,
	}
}

// PrepareNext returns a template on top of the current tip whose coinbase pays to OP_TRUE and whose
// timestamp is one second after the tip's median time past.
func (b *BlockBuilder) PrepareNext(ctx context.Context) (*model.Block, error) {
	block, err := b.assembler.BuildTemplate(ctx, bscript.NewFromBytes(placeholderScript))
	if err != nil {
		return nil, errors.NewProcessingError("[PrepareNext] failed to build template", err)
	}

	coinbase := block.CoinbaseTx()
	if coinbase == nil || len(coinbase.Outputs) == 0 {
		return nil, errors.NewProcessingError("[PrepareNext] template has no coinbase output")
	}

	coinbase.Outputs[0].LockingScript = bscript.NewFromBytes(anyoneCanSpend)

	mtp, err := b.chain.MedianTimePast(ctx)
	if err != nil {
		return nil, errors.NewProcessingError("[PrepareNext] failed to get median time past", err)
	}

	if mtp < 0 || mtp >= math.MaxUint32 {
		return nil, errors.NewProcessingError("[PrepareNext] median time past %d out of range", mtp)
	}

	block.Header.Timestamp = uint32(mtp) + 1
	block.UpdateMerkleRoot()

	return block, nil
}

// AppendInput adds an input spending txo to the last transaction of block, together with an output
// forwarding its full value to the same locking script.
func (b *BlockBuilder) AppendInput(block *model.Block, txo Txo) (*model.Block, error) {
	next := block.Clone()

	if len(next.Transactions) == 0 {
		return nil, errors.NewInvalidArgumentError("[AppendInput] block has no transactions")
	}

	if err := forward(next.Transactions[len(next.Transactions)-1], txo); err != nil {
		return nil, err
	}

	return next, nil
}

// AppendTransaction appends a new transaction forwarding txo.
func (b *BlockBuilder) AppendTransaction(block *model.Block, txo Txo) (*model.Block, error) {
	next := block.Clone()

	tx := bt.NewTx()
	if err := forward(tx, txo); err != nil {
		return nil, err
	}

	next.Transactions = append(next.Transactions, tx)

	return next, nil
}

// RegenerateCommitments rebuilds the extended transaction commitment of block against the current tip
// and recomputes its merkle root.
func (b *BlockBuilder) RegenerateCommitments(ctx context.Context, block *model.Block) (*model.Block, error) {
	next := block.Clone()

	parent, _, err := b.chain.BestHeader(ctx)
	if err != nil {
		return nil, errors.NewProcessingError("[RegenerateCommitments] failed to get best header", err)
	}

	if err = b.regenerator.RegenerateCommitment(next, parent); err != nil {
		return nil, err
	}

	return next, nil
}

// forward spends txo in tx without a fee. The input carries the extended fields and an empty unlocking
// script, which satisfies OP_TRUE.
func forward(tx *bt.Tx, txo Txo) error {
	output := cloneOutput(txo.Output)

	input := &bt.Input{
		PreviousTxOutIndex: txo.Outpoint.Index,
		PreviousTxSatoshis: output.Satoshis,
		PreviousTxScript:   output.LockingScript,
		SequenceNumber:     0xffffffff,
		UnlockingScript:    &bscript.Script{},
	}

	if err := input.PreviousTxIDAdd(&txo.Outpoint.TxID); err != nil {
		return errors.NewProcessingError("failed to set previous txid %s", txo.Outpoint, err)
	}

	tx.Inputs = append(tx.Inputs, input)
	tx.AddOutput(cloneOutput(txo.Output))

	return nil
}
