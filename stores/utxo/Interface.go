// Package utxo defines the coin database: the set of unspent outputs the chain has created, and the
// statistics recomputed over it.
package utxo

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/supplyfuzz/model"
)

// Coin is an unspent output together with the height and kind of transaction that created it.
type Coin struct {
	Outpoint   model.Outpoint
	Output     *bt.Output
	Height     uint32
	IsCoinbase bool
}

// Statistics is a full recomputation over the unspent output set.
type Statistics struct {
	// BestBlock and Height identify the last block connected to the coin database.
	BestBlock chainhash.Hash
	Height    uint32

	// TotalAmount is the sum of all unspent output values.
	TotalAmount uint64

	// Count is the number of unspent outputs.
	Count uint64

	// Hash commits to every unspent output in (txid, index) order, including its height and coinbase
	// flag. Any change to the set changes the hash.
	Hash chainhash.Hash
}

type Store interface {
	// GetCoin returns the unspent output, or an ERR_UTXO_NOT_FOUND error if it does not exist or was spent.
	GetCoin(ctx context.Context, outpoint model.Outpoint) (*Coin, error)

	// HasUnspentOutputs reports whether any output of txid is still unspent.
	HasUnspentOutputs(ctx context.Context, txid *chainhash.Hash) (bool, error)

	// ConnectBlock spends every input and adds every spendable output of the block in a single atomic
	// database transaction. Nothing is written when it returns an error.
	ConnectBlock(ctx context.Context, block *model.Block, height uint32) error

	// ComputeStatistics walks the whole unspent output set.
	ComputeStatistics(ctx context.Context) (*Statistics, error)

	Close() error
}

// IsUnspendable reports data carrier outputs (OP_RETURN or OP_FALSE OP_RETURN), which are never added
// to the coin database.
func IsUnspendable(output *bt.Output) bool {
	if output.LockingScript == nil {
		return false
	}

	s := *output.LockingScript

	switch {
	case len(s) > 0 && s[0] == bscript.OpRETURN:
		return true
	case len(s) > 1 && s[0] == bscript.OpFALSE && s[1] == bscript.OpRETURN:
		return true
	}

	return false
}
