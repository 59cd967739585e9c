package util

import (
	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/supplyfuzz/errors"
)

// maxCoinbaseScriptLen and minCoinbaseScriptLen bound the coinbase unlocking script (bad-cb-length).
const (
	minCoinbaseScriptLen = 2
	maxCoinbaseScriptLen = 100
)

// ScriptNumBytes returns the minimal little-endian sign-magnitude encoding of n used by script numbers.
func ScriptNumBytes(n int64) []byte {
	if n == 0 {
		return []byte{}
	}

	negative := n < 0

	abs := uint64(n)
	if negative {
		abs = uint64(-n)
	}

	result := make([]byte, 0, 9)
	for abs > 0 {
		result = append(result, byte(abs&0xff))
		abs >>= 8
	}

	if result[len(result)-1]&0x80 != 0 {
		if negative {
			result = append(result, 0x80)
		} else {
			result = append(result, 0x00)
		}
	} else if negative {
		result[len(result)-1] |= 0x80
	}

	return result
}

// AppendScriptNum appends n to s the way a script builder pushes an integer: small values become
// OP_0, OP_1NEGATE or OP_1..OP_16, everything else a minimal data push.
func AppendScriptNum(s *bscript.Script, n int64) error {
	switch {
	case n == 0:
		return s.AppendOpcodes(bscript.OpFALSE)
	case n == -1:
		return s.AppendOpcodes(bscript.Op1NEGATE)
	case n >= 1 && n <= 16:
		return s.AppendOpcodes(bscript.Op1 + byte(n-1))
	}

	return s.AppendPushData(ScriptNumBytes(n))
}

// BuildCoinbaseScript returns the coinbase unlocking script for height: "<height> OP_0", followed by a
// push of arbitraryText when it is not empty. The trailing OP_0 keeps the script above the minimum
// coinbase script length for small heights.
func BuildCoinbaseScript(height int64, arbitraryText string) (*bscript.Script, error) {
	s := &bscript.Script{}

	if err := AppendScriptNum(s, height); err != nil {
		return nil, errors.NewProcessingError("failed to push coinbase height %d", height, err)
	}

	if err := s.AppendOpcodes(bscript.OpFALSE); err != nil {
		return nil, errors.NewProcessingError("failed to append coinbase padding", err)
	}

	if arbitraryText != "" {
		if err := s.AppendPushData([]byte(arbitraryText)); err != nil {
			return nil, errors.NewProcessingError("failed to push coinbase text", err)
		}
	}

	if len(*s) > maxCoinbaseScriptLen {
		return nil, errors.NewInvalidArgumentError("coinbase script too long: %d bytes", len(*s))
	}

	return s, nil
}

// NewCoinbaseTx returns a transaction with the single null-prevout input of a coinbase, unlocked by script,
// paying to outputs.
func NewCoinbaseTx(script *bscript.Script, outputs ...*bt.Output) (*bt.Tx, error) {
	tx := bt.NewTx()

	input := &bt.Input{
		PreviousTxOutIndex: 0xffffffff,
		SequenceNumber:     0xffffffff,
		UnlockingScript:    script,
	}

	if err := input.PreviousTxIDAdd(&chainhash.Hash{}); err != nil {
		return nil, errors.NewProcessingError("failed to set coinbase prevout", err)
	}

	tx.Inputs = append(tx.Inputs, input)

	for _, output := range outputs {
		tx.AddOutput(output)
	}

	return tx, nil
}

// ExtractCoinbaseHeight decodes the height pushed at the start of the coinbase unlocking script.
func ExtractCoinbaseHeight(coinbaseTx *bt.Tx) (uint32, error) {
	if coinbaseTx == nil || len(coinbaseTx.Inputs) == 0 || coinbaseTx.Inputs[0].UnlockingScript == nil {
		return 0, errors.NewTxCoinbaseMissingHeightError("coinbase has no unlocking script")
	}

	sigScript := *coinbaseTx.Inputs[0].UnlockingScript
	if len(sigScript) < 1 {
		return 0, errors.NewTxCoinbaseMissingHeightError("the coinbase signature script must start with the serialized block height")
	}

	opcode := sigScript[0]

	switch {
	case opcode == bscript.OpFALSE:
		return 0, nil
	case opcode >= bscript.Op1 && opcode <= bscript.Op16:
		return uint32(opcode-bscript.Op1) + 1, nil
	case opcode > bscript.OpDATA8:
		return 0, errors.NewTxCoinbaseMissingHeightError("coinbase height push of %d bytes is too large", opcode)
	}

	serializedLen := int(opcode)
	if len(sigScript[1:]) < serializedLen {
		return 0, errors.NewTxCoinbaseMissingHeightError("the coinbase signature script is shorter than its height push")
	}

	var height uint64
	for i := serializedLen; i > 0; i-- {
		height = height<<8 | uint64(sigScript[i])
	}

	return uint32(height), nil
}

// CheckCoinbaseScriptLength enforces the coinbase unlocking script size limits.
func CheckCoinbaseScriptLength(coinbaseTx *bt.Tx) error {
	if len(coinbaseTx.Inputs) == 0 || coinbaseTx.Inputs[0].UnlockingScript == nil {
		return errors.NewTxInvalidError("bad-cb-length: missing coinbase script")
	}

	l := len(*coinbaseTx.Inputs[0].UnlockingScript)
	if l < minCoinbaseScriptLen || l > maxCoinbaseScriptLen {
		return errors.NewTxInvalidError("bad-cb-length: coinbase script is %d bytes", l)
	}

	return nil
}
