package model

import (
	"bytes"

	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/supplyfuzz/util"
)

// ExtendedTxCommitmentHeader prefixes the payload of the coinbase output that commits to the extended
// (previous satoshis and script carrying) form of every non-coinbase transaction in the block.
var ExtendedTxCommitmentHeader = []byte{0xaa, 0x21, 0xa9, 0xed}

// commitment script: OP_FALSE OP_RETURN <36 bytes: header || root>
const extendedTxCommitmentScriptLen = 2 + 1 + 4 + chainhash.HashSize

func ExtendedTxCommitmentScript(root *chainhash.Hash) *bscript.Script {
	s := make(bscript.Script, 0, extendedTxCommitmentScriptLen)
	s = append(s, bscript.OpFALSE, bscript.OpRETURN, bscript.OpDATA36)
	s = append(s, ExtendedTxCommitmentHeader...)
	s = append(s, root[:]...)

	return &s
}

func IsExtendedTxCommitment(s *bscript.Script) bool {
	if s == nil || len(*s) != extendedTxCommitmentScriptLen {
		return false
	}

	b := *s

	return b[0] == bscript.OpFALSE && b[1] == bscript.OpRETURN && b[2] == bscript.OpDATA36 &&
		bytes.Equal(b[3:7], ExtendedTxCommitmentHeader)
}

// ExtendedTxCommitmentIndex returns the index of the last commitment output of the coinbase, or -1.
func (b *Block) ExtendedTxCommitmentIndex() int {
	coinbase := b.CoinbaseTx()
	if coinbase == nil {
		return -1
	}

	for i := len(coinbase.Outputs) - 1; i >= 0; i-- {
		if IsExtendedTxCommitment(coinbase.Outputs[i].LockingScript) {
			return i
		}
	}

	return -1
}

// ExtendedTxCommitment returns the committed root, if the coinbase carries one.
func (b *Block) ExtendedTxCommitment() (*chainhash.Hash, bool) {
	idx := b.ExtendedTxCommitmentIndex()
	if idx < 0 {
		return nil, false
	}

	root, err := chainhash.NewHash((*b.CoinbaseTx().Outputs[idx].LockingScript)[7:])
	if err != nil {
		return nil, false
	}

	return root, true
}

// CalculateExtendedTxRoot returns the merkle root of the double sha256 of every transaction's extended
// serialization. The coinbase leaf is zero, since the coinbase carries the commitment itself.
func (b *Block) CalculateExtendedTxRoot() *chainhash.Hash {
	leaves := make([]chainhash.Hash, len(b.Transactions))

	for i, tx := range b.Transactions {
		if i == 0 {
			continue
		}

		leaves[i] = chainhash.DoubleHashH(tx.ExtendedBytes())
	}

	root := util.BuildMerkleRoot(leaves)

	return &root
}

// HasNonCoinbaseTransactions reports whether anything besides the coinbase needs committing.
func (b *Block) HasNonCoinbaseTransactions() bool {
	return len(b.Transactions) > 1
}
