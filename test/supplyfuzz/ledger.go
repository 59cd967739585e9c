package supplyfuzz

import (
	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	safeconversion "github.com/bsv-blockchain/go-safe-conversion"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/model"
	"github.com/bsv-blockchain/supplyfuzz/stores/utxo"
	"github.com/bsv-blockchain/supplyfuzz/util/fuzzdata"
)

// Txo is an output the harness created or saw created. It may have been spent since, or never
// have been mined at all.
type Txo struct {
	Outpoint model.Outpoint
	Output   *bt.Output
}

// ShadowLedger is the harness's own account of the supply. Its output list only grows, so picking
// from it can yield outputs that no longer exist, which is how invalid spends get generated.
type ShadowLedger struct {
	txos        []Txo
	circulation uint64
}

func NewShadowLedger() *ShadowLedger {
	return &ShadowLedger{}
}

func (l *ShadowLedger) Record(outpoint model.Outpoint, output *bt.Output) {
	l.txos = append(l.txos, Txo{
		Outpoint: outpoint,
		Output:   cloneOutput(output),
	})
}

// RecordLast records the last output of the last transaction of block. When block holds only its
// coinbase and that output is a data carrier, the output before it is recorded as well.
func (l *ShadowLedger) RecordLast(block *model.Block) error {
	if len(block.Transactions) == 0 {
		return errors.NewInvalidArgumentError("block %s has no transactions", block.Hash())
	}

	tx := block.Transactions[len(block.Transactions)-1]
	if len(tx.Outputs) == 0 {
		return errors.NewInvalidArgumentError("last transaction %s has no outputs", tx.TxID())
	}

	last, err := safeconversion.IntToUint32(len(tx.Outputs) - 1)
	if err != nil {
		return errors.NewProcessingError("too many outputs in %s", tx.TxID(), err)
	}

	txid := tx.TxIDChainHash()

	l.Record(model.NewOutpoint(txid, last), tx.Outputs[last])

	if len(block.Transactions) == 1 && last > 0 && utxo.IsUnspendable(tx.Outputs[last]) {
		l.Record(model.NewOutpoint(txid, last-1), tx.Outputs[last-1])
	}

	return nil
}

// PickRandom returns the entry at an index drawn from provider.
func (l *ShadowLedger) PickRandom(provider *fuzzdata.Provider) (Txo, error) {
	if len(l.txos) == 0 {
		return Txo{}, errors.NewEmptyLedgerError("cannot pick from an empty ledger")
	}

	index := provider.ConsumeIntInRange(0, int64(len(l.txos)-1))

	txo := l.txos[index]

	return Txo{Outpoint: txo.Outpoint, Output: cloneOutput(txo.Output)}, nil
}

func (l *ShadowLedger) Credit(amount uint64) {
	l.circulation += amount
}

// AssertConsistentWith compares the circulating supply with a total recomputed from the coin database.
func (l *ShadowLedger) AssertConsistentWith(authoritative uint64) error {
	if l.circulation != authoritative {
		return errors.NewSupplyMismatchError("circulation %d, utxo set total %d", l.circulation, authoritative).
			WithData("circulation", l.circulation).
			WithData("utxo_total", authoritative)
	}

	return nil
}

func (l *ShadowLedger) Len() int {
	return len(l.txos)
}

func (l *ShadowLedger) Circulation() uint64 {
	return l.circulation
}

func cloneOutput(output *bt.Output) *bt.Output {
	clone := &bt.Output{Satoshis: output.Satoshis}

	if output.LockingScript != nil {
		s := make([]byte, len(*output.LockingScript))
		copy(s, *output.LockingScript)
		clone.LockingScript = bscript.NewFromBytes(s)
	}

	return clone
}
