package supplyfuzz

import (
	"context"
	"testing"

	"github.com/bsv-blockchain/supplyfuzz/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareNext(t *testing.T) {
	ctx := context.Background()
	node := newTestNode(t, 1)
	builder := NewBlockBuilder(node.Assembler(), node.Assembler(), node)

	block, err := builder.PrepareNext(ctx)
	require.NoError(t, err)

	tip, _, err := node.BestHeader(ctx)
	require.NoError(t, err)

	mtp, err := node.MedianTimePast(ctx)
	require.NoError(t, err)

	assert.Equal(t, *tip.Hash(), *block.Header.HashPrevBlock)
	assert.Equal(t, uint32(mtp)+1, block.Header.Timestamp)
	assert.Equal(t, opTrue.String(), block.CoinbaseTx().Outputs[0].LockingScript.String())
	assert.Equal(t, subsidies(node, 1), block.CoinbaseTx().Outputs[0].Satoshis)
	require.NoError(t, block.CheckMerkleRoot())

	// an empty template is the same every time
	again, err := builder.PrepareNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, block.CoinbaseTx().TxID(), again.CoinbaseTx().TxID())
}

func TestAppendInput(t *testing.T) {
	ctx := context.Background()
	node := newTestNode(t, 1)
	builder := NewBlockBuilder(node.Assembler(), node.Assembler(), node)

	block, err := builder.PrepareNext(ctx)
	require.NoError(t, err)

	coinbaseID := block.CoinbaseTx().TxID()
	outputs := len(block.CoinbaseTx().Outputs)

	txo := Txo{Outpoint: model.NewOutpoint(block.CoinbaseTx().TxIDChainHash(), 0), Output: block.CoinbaseTx().Outputs[0]}

	next, err := builder.AppendInput(block, txo)
	require.NoError(t, err)

	// the input lands on the last transaction, which is the coinbase here
	require.Len(t, next.Transactions, 1)

	last := next.Transactions[0]
	require.Len(t, last.Inputs, 2)
	require.Len(t, last.Outputs, outputs+1)

	input := last.Inputs[1]
	assert.Equal(t, txo.Outpoint.TxID, *input.PreviousTxIDChainHash())
	assert.Equal(t, uint32(0), input.PreviousTxOutIndex)
	assert.Equal(t, txo.Output.Satoshis, input.PreviousTxSatoshis)
	assert.Equal(t, uint32(0xffffffff), input.SequenceNumber)
	assert.Empty(t, *input.UnlockingScript)

	forwarded := last.Outputs[outputs]
	assert.Equal(t, txo.Output.Satoshis, forwarded.Satoshis)
	assert.Equal(t, txo.Output.LockingScript.String(), forwarded.LockingScript.String())

	// the block handed in is untouched
	assert.Len(t, block.CoinbaseTx().Inputs, 1)
	assert.Len(t, block.CoinbaseTx().Outputs, outputs)
	assert.Equal(t, coinbaseID, block.CoinbaseTx().TxID())
}

func TestAppendTransaction(t *testing.T) {
	ctx := context.Background()
	node := newTestNode(t, 1)
	builder := NewBlockBuilder(node.Assembler(), node.Assembler(), node)

	block, err := builder.PrepareNext(ctx)
	require.NoError(t, err)

	txo := Txo{Outpoint: model.NewOutpoint(block.CoinbaseTx().TxIDChainHash(), 0), Output: block.CoinbaseTx().Outputs[0]}

	next, err := builder.AppendTransaction(block, txo)
	require.NoError(t, err)

	require.Len(t, next.Transactions, 2)
	require.Len(t, block.Transactions, 1)

	tx := next.Transactions[1]
	require.Len(t, tx.Inputs, 1)
	require.Len(t, tx.Outputs, 1)
	assert.Equal(t, txo.Output.Satoshis, tx.Outputs[0].Satoshis)
	assert.Equal(t, txo.Outpoint.TxID, *tx.Inputs[0].PreviousTxIDChainHash())

	// a second append goes into the new transaction
	next, err = builder.AppendInput(next, txo)
	require.NoError(t, err)

	assert.Len(t, next.Transactions[1].Inputs, 2)
	assert.Len(t, next.CoinbaseTx().Inputs, 1)
}

func TestRegenerateCommitments(t *testing.T) {
	ctx := context.Background()
	node := newTestNode(t, 1)
	builder := NewBlockBuilder(node.Assembler(), node.Assembler(), node)

	block, err := builder.PrepareNext(ctx)
	require.NoError(t, err)

	txo := Txo{Outpoint: model.NewOutpoint(block.CoinbaseTx().TxIDChainHash(), 0), Output: block.CoinbaseTx().Outputs[0]}

	next, err := builder.AppendTransaction(block, txo)
	require.NoError(t, err)

	// the template commitment only covered the coinbase
	committed, ok := next.ExtendedTxCommitment()
	require.True(t, ok)
	assert.NotEqual(t, *next.CalculateExtendedTxRoot(), *committed)

	regenerated, err := builder.RegenerateCommitments(ctx, next)
	require.NoError(t, err)

	committed, ok = regenerated.ExtendedTxCommitment()
	require.True(t, ok)
	assert.Equal(t, *regenerated.CalculateExtendedTxRoot(), *committed)
	require.NoError(t, regenerated.CheckMerkleRoot())

	// exactly one commitment output remains
	commitments := 0

	for _, output := range regenerated.CoinbaseTx().Outputs {
		if model.IsExtendedTxCommitment(output.LockingScript) {
			commitments++
		}
	}

	assert.Equal(t, 1, commitments)
	assert.Len(t, regenerated.CoinbaseTx().Outputs, len(next.CoinbaseTx().Outputs))
}
