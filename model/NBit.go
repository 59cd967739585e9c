package model

import (
	"encoding/binary"
	"encoding/hex"
	"math/big"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/supplyfuzz/errors"
)

// NBit is the compact difficulty target, stored in header (little-endian) byte order.
type NBit [4]byte

var (
	// diff1Target is the target of difficulty 1 (compact 0x1d00ffff).
	diff1Target = new(big.Int).Lsh(big.NewInt(0xffff), 8*(0x1d-3))
)

func NewNBitFromSlice(bits []byte) (*NBit, error) {
	if len(bits) != 4 {
		return nil, errors.NewInvalidArgumentError("nBits should be 4 bytes long, got %d", len(bits))
	}

	var nBit NBit

	copy(nBit[:], bits)

	return &nBit, nil
}

// NewNBitFromString parses the big-endian hex form, e.g. "207fffff".
func NewNBitFromString(s string) (*NBit, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.NewInvalidArgumentError("invalid nBits hex %q", s, err)
	}

	return NewNBitFromSlice(bt.ReverseBytes(b))
}

func NewNBitFromUint32(bits uint32) NBit {
	var nBit NBit

	binary.LittleEndian.PutUint32(nBit[:], bits)

	return nBit
}

func (b NBit) Uint32() uint32 {
	return binary.LittleEndian.Uint32(b[:])
}

func (b NBit) String() string {
	return hex.EncodeToString(bt.ReverseBytes(b.CloneBytes()))
}

func (b NBit) CloneBytes() []byte {
	out := make([]byte, 4)
	copy(out, b[:])

	return out
}

// CalculateTarget expands the compact form into the 256-bit target.
func (b NBit) CalculateTarget() *big.Int {
	compact := b.Uint32()

	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := uint(compact >> 24)

	var target *big.Int

	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		target = big.NewInt(int64(mantissa))
	} else {
		target = big.NewInt(int64(mantissa))
		target.Lsh(target, 8*(exponent-3))
	}

	if isNegative {
		target = target.Neg(target)
	}

	return target
}

// CalculateDifficulty returns diff1Target / target.
func (b NBit) CalculateDifficulty() *big.Float {
	target := new(big.Float).SetInt(b.CalculateTarget())
	if target.Sign() == 0 {
		return new(big.Float)
	}

	return new(big.Float).Quo(new(big.Float).SetInt(diff1Target), target)
}
