package model

import (
	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/supplyfuzz/errors"
)

// NewTestBlock returns a version 4 block on top of prev holding txs, with the merkle root filled in.
// The nonce is left at zero.
func NewTestBlock(prev *chainhash.Hash, timestamp uint32, bits NBit, height uint32, txs ...*bt.Tx) *Block {
	block := NewBlock(&BlockHeader{
		Version:        4,
		HashPrevBlock:  prev,
		HashMerkleRoot: &chainhash.Hash{},
		Timestamp:      timestamp,
		Bits:           bits,
	}, txs, height)

	block.UpdateMerkleRoot()

	return block
}

// GrindTestBlock increments the nonce until the header meets its own target. It is only practical for
// the regtest proof of work limit.
func GrindTestBlock(block *Block) error {
	for {
		ok, _, err := block.Header.HasMetTargetDifficulty()
		if err != nil {
			return err
		}

		if ok {
			return nil
		}

		if block.Header.Nonce == ^uint32(0) {
			return errors.NewProcessingError("nonce space exhausted for test block")
		}

		block.Header.Nonce++
	}
}
