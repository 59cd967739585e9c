package model

import (
	"encoding/binary"
	"encoding/hex"
	"math/big"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/supplyfuzz/errors"
)

const BlockHeaderSize = 80

type BlockHeader struct {
	// Version of the block.  This is not the same as the protocol version.
	Version uint32

	// Hash of the previous block header in the blockchain.
	HashPrevBlock *chainhash.Hash

	// Merkle tree reference to hash of all transactions for the block.
	HashMerkleRoot *chainhash.Hash

	// Time the block was created in unix time.
	Timestamp uint32

	// Difficulty target for the block.
	Bits NBit

	// Nonce used to generate the block.
	Nonce uint32
}

func NewBlockHeaderFromBytes(headerBytes []byte) (*BlockHeader, error) {
	if len(headerBytes) != BlockHeaderSize {
		return nil, errors.NewInvalidArgumentError("block header should be %d bytes long, got %d", BlockHeaderSize, len(headerBytes))
	}

	hashPrevBlock, err := chainhash.NewHash(headerBytes[4:36])
	if err != nil {
		return nil, errors.NewProcessingError("error creating previous block hash from bytes", err)
	}

	hashMerkleRoot, err := chainhash.NewHash(headerBytes[36:68])
	if err != nil {
		return nil, errors.NewProcessingError("error creating merkle root hash from bytes", err)
	}

	nBits, err := NewNBitFromSlice(headerBytes[72:76])
	if err != nil {
		return nil, err
	}

	return &BlockHeader{
		Version:        binary.LittleEndian.Uint32(headerBytes[:4]),
		HashPrevBlock:  hashPrevBlock,
		HashMerkleRoot: hashMerkleRoot,
		Timestamp:      binary.LittleEndian.Uint32(headerBytes[68:72]),
		Bits:           *nBits,
		Nonce:          binary.LittleEndian.Uint32(headerBytes[76:]),
	}, nil
}

func NewBlockHeaderFromString(headerHex string) (*BlockHeader, error) {
	headerBytes, err := hex.DecodeString(headerHex)
	if err != nil {
		return nil, errors.NewInvalidArgumentError("error decoding hex string to bytes", err)
	}

	return NewBlockHeaderFromBytes(headerBytes)
}

func (bh *BlockHeader) Hash() *chainhash.Hash {
	hash := chainhash.DoubleHashH(bh.Bytes())
	return &hash
}

func (bh *BlockHeader) String() string {
	return bh.Hash().String()
}

// HasMetTargetDifficulty reports whether the header hash is at or below the target encoded in Bits.
// The hash is returned so callers do not have to hash the header twice.
func (bh *BlockHeader) HasMetTargetDifficulty() (bool, *chainhash.Hash, error) {
	target := bh.Bits.CalculateTarget()
	if target.Sign() <= 0 {
		return false, nil, errors.NewBlockInvalidError("block %s has a non-positive target %s", bh.String(), bh.Bits.String())
	}

	hash := bh.Hash()

	hashInt := new(big.Int).SetBytes(bt.ReverseBytes(hash.CloneBytes()))

	return hashInt.Cmp(target) <= 0, hash, nil
}

func (bh *BlockHeader) Bytes() []byte {
	blockHeaderBytes := make([]byte, BlockHeaderSize)

	binary.LittleEndian.PutUint32(blockHeaderBytes[:4], bh.Version)

	if bh.HashPrevBlock != nil {
		copy(blockHeaderBytes[4:36], bh.HashPrevBlock[:])
	}

	if bh.HashMerkleRoot != nil {
		copy(blockHeaderBytes[36:68], bh.HashMerkleRoot[:])
	}

	binary.LittleEndian.PutUint32(blockHeaderBytes[68:72], bh.Timestamp)
	copy(blockHeaderBytes[72:76], bh.Bits[:])
	binary.LittleEndian.PutUint32(blockHeaderBytes[76:], bh.Nonce)

	return blockHeaderBytes
}

func (bh *BlockHeader) Clone() *BlockHeader {
	clone := *bh

	if bh.HashPrevBlock != nil {
		h := *bh.HashPrevBlock
		clone.HashPrevBlock = &h
	}

	if bh.HashMerkleRoot != nil {
		h := *bh.HashMerkleRoot
		clone.HashMerkleRoot = &h
	}

	return &clone
}
