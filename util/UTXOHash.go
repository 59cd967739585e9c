package util

import (
	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/supplyfuzz/errors"
)

// UTXOHash returns sha256(txid || varint(index) || locking script || varint(satoshis)).
// It identifies a single unspent output and feeds the coin database's identity hash.
func UTXOHash(txid *chainhash.Hash, index uint32, lockingScript *bscript.Script, satoshis uint64) (*chainhash.Hash, error) {
	if txid == nil {
		return nil, errors.NewProcessingError("txid is nil")
	}

	if lockingScript == nil {
		return nil, errors.NewProcessingError("locking script is nil")
	}

	utxoHash := make([]byte, 0, 64+len(*lockingScript))
	utxoHash = append(utxoHash, txid.CloneBytes()...)
	utxoHash = append(utxoHash, bt.VarInt(index).Bytes()...)
	utxoHash = append(utxoHash, *lockingScript...)
	utxoHash = append(utxoHash, bt.VarInt(satoshis).Bytes()...)

	chHash := chainhash.HashH(utxoHash)

	return &chHash, nil
}

func UTXOHashFromOutput(txid *chainhash.Hash, output *bt.Output, vOut uint32) (*chainhash.Hash, error) {
	if output == nil {
		return nil, errors.NewProcessingError("output is nil")
	}

	return UTXOHash(txid, vOut, output.LockingScript, output.Satoshis)
}
