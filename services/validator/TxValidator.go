/*
Package validator implements the transaction rules a block's transactions are checked against.

Context free checks (CheckTransaction, CheckCoinbase) only look at the transaction itself.
ValidateTransaction additionally needs the coins being spent and the height of the block the
transaction is mined in: it enforces coinbase maturity, value ranges and fees, and executes every
input script with the go-bt interpreter.
*/
package validator

import (
	"bytes"
	"time"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/bscript/interpreter"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/go-chaincfg"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/settings"
	"github.com/bsv-blockchain/supplyfuzz/stores/utxo"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
	"github.com/bsv-blockchain/supplyfuzz/util"
)

// MaxSatoshis is the total supply limit any single value or sum of values must stay below.
const MaxSatoshis = 21_000_000_00_000_000

// TxValidator implements transaction validation logic
type TxValidator struct {
	logger   ulogger.Logger
	settings *settings.Settings
	params   *chaincfg.Params
}

func NewTxValidator(logger ulogger.Logger, tSettings *settings.Settings) *TxValidator {
	initPrometheusMetrics()

	return &TxValidator{
		logger:   logger,
		settings: tSettings,
		params:   tSettings.ChainCfgParams,
	}
}

// CheckTransaction performs the context free checks of a non-coinbase transaction:
//  1. Neither lists of inputs nor outputs are empty
//  2. Each output value, as well as the total, is below MaxSatoshis
//  3. No input is spent twice within the transaction
//  4. No input references the null outpoint of a coinbase
func (tv *TxValidator) CheckTransaction(tx *bt.Tx) error {
	if len(tx.Inputs) == 0 {
		return errors.NewTxInvalidError("bad-txns-vin-empty: transaction %s has no inputs", tx.TxID())
	}

	if err := checkOutputs(tx); err != nil {
		return err
	}

	seenInputs := make(map[[36]byte]struct{}, len(tx.Inputs))

	for index, input := range tx.Inputs {
		prevTxID := input.PreviousTxIDChainHash()
		if prevTxID == nil {
			return errors.NewTxInvalidError("bad-txns-prevout-null: input %d of %s has no previous txid", index, tx.TxID())
		}

		var key [36]byte

		copy(key[:32], prevTxID[:])
		key[32] = byte(input.PreviousTxOutIndex >> 24)
		key[33] = byte(input.PreviousTxOutIndex >> 16)
		key[34] = byte(input.PreviousTxOutIndex >> 8)
		key[35] = byte(input.PreviousTxOutIndex)

		if _, exists := seenInputs[key]; exists {
			return errors.NewTxInvalidError("bad-txns-inputs-duplicate: input %d of %s is spent twice", index, tx.TxID())
		}

		seenInputs[key] = struct{}{}

		if prevTxID.IsEqual(&chainhash.Hash{}) && input.PreviousTxOutIndex == 0xffffffff {
			return errors.NewTxInvalidError("bad-txns-prevout-null: input %d of %s is a coinbase input", index, tx.TxID())
		}
	}

	return nil
}

// CheckCoinbase performs the context free checks of a coinbase transaction.
func (tv *TxValidator) CheckCoinbase(tx *bt.Tx) error {
	if !tx.IsCoinbase() {
		return errors.NewTxInvalidError("bad-cb-missing: first transaction %s is not a coinbase", tx.TxID())
	}

	if err := util.CheckCoinbaseScriptLength(tx); err != nil {
		return err
	}

	return checkOutputs(tx)
}

// ValidateTransaction checks tx, mined at blockHeight, against the coins its inputs spend and returns
// the fee it pays. coins must be in input order.
func (tv *TxValidator) ValidateTransaction(tx *bt.Tx, blockHeight uint32, coins []*utxo.Coin) (uint64, error) {
	start := time.Now()
	defer func() {
		prometheusTransactionValidate.Observe(time.Since(start).Seconds())
	}()

	if len(coins) != len(tx.Inputs) {
		return 0, errors.NewProcessingError("transaction %s has %d inputs but %d coins were resolved", tx.TxID(), len(tx.Inputs), len(coins))
	}

	var totalIn uint64

	for index, coin := range coins {
		input := tx.Inputs[index]

		if coin.IsCoinbase && uint64(blockHeight) < uint64(coin.Height)+uint64(tv.params.CoinbaseMaturity) {
			prometheusInvalidTransactions.Inc()
			return 0, errors.NewTxCoinbaseImmatureError("bad-txns-premature-spend-of-coinbase: input %d of %s spends coinbase from height %d at height %d",
				index, tx.TxID(), coin.Height, blockHeight)
		}

		// the extended fields are committed to by the coinbase, they have to describe the real coin
		if input.PreviousTxSatoshis != coin.Output.Satoshis || !scriptsEqual(input.PreviousTxScript, coin.Output.LockingScript) {
			prometheusInvalidTransactions.Inc()
			return 0, errors.NewTxInvalidError("bad-txns-prevout-mismatch: input %d of %s does not match the coin it spends", index, tx.TxID())
		}

		if coin.Output.Satoshis > MaxSatoshis {
			prometheusInvalidTransactions.Inc()
			return 0, errors.NewTxInvalidError("bad-txns-inputvalues-outofrange: input %d of %s", index, tx.TxID())
		}

		totalIn += coin.Output.Satoshis

		if totalIn > MaxSatoshis {
			prometheusInvalidTransactions.Inc()
			return 0, errors.NewTxInvalidError("bad-txns-inputvalues-outofrange: total input value of %s", tx.TxID())
		}
	}

	totalOut := tx.TotalOutputSatoshis()
	if totalIn < totalOut {
		prometheusInvalidTransactions.Inc()
		return 0, errors.NewTxInvalidError("bad-txns-in-belowout: %s spends %d but creates %d", tx.TxID(), totalIn, totalOut)
	}

	if err := tv.ValidateTransactionScripts(tx, blockHeight, coins); err != nil {
		prometheusInvalidTransactions.Inc()
		return 0, err
	}

	return totalIn - totalOut, nil
}

// ValidateTransactionScripts executes the unlocking script of every input against the locking script
// of the coin it spends.
func (tv *TxValidator) ValidateTransactionScripts(tx *bt.Tx, blockHeight uint32, coins []*utxo.Coin) error {
	start := time.Now()
	defer func() {
		prometheusTransactionValidateScripts.Observe(time.Since(start).Seconds())
	}()

	for index, coin := range coins {
		opts := []interpreter.ExecutionOptionFunc{
			interpreter.WithTx(tx, index, coin.Output),
		}

		if blockHeight > tv.params.UahfForkHeight {
			opts = append(opts, interpreter.WithForkID())
		}

		if blockHeight >= tv.params.GenesisActivationHeight {
			opts = append(opts, interpreter.WithAfterGenesis())
		}

		if err := interpreter.NewEngine().Execute(opts...); err != nil {
			return errors.NewTxInvalidError("mandatory-script-verify-flag-failed: input %d of %s", index, tx.TxID(), err)
		}
	}

	return nil
}

func checkOutputs(tx *bt.Tx) error {
	if len(tx.Outputs) == 0 {
		return errors.NewTxInvalidError("bad-txns-vout-empty: transaction %s has no outputs", tx.TxID())
	}

	var total uint64

	for index, output := range tx.Outputs {
		if output.LockingScript == nil {
			return errors.NewTxInvalidError("bad-txns-vout-script: output %d of %s has no locking script", index, tx.TxID())
		}

		if output.Satoshis > MaxSatoshis {
			return errors.NewTxInvalidError("bad-txns-vout-toolarge: output %d of %s", index, tx.TxID())
		}

		total += output.Satoshis

		if total > MaxSatoshis {
			return errors.NewTxInvalidError("bad-txns-txouttotal-toolarge: %s", tx.TxID())
		}
	}

	return nil
}

func scriptsEqual(a, b *bscript.Script) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return bytes.Equal(*a, *b)
}
