package model

import (
	"bytes"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/util"
)

// Block is a full block: header plus every transaction, coinbase first. Height is not serialized; it
// is the height the block was built for.
type Block struct {
	Header       *BlockHeader
	Transactions []*bt.Tx
	Height       uint32
}

func NewBlock(header *BlockHeader, transactions []*bt.Tx, height uint32) *Block {
	return &Block{
		Header:       header,
		Transactions: transactions,
		Height:       height,
	}
}

// NewBlockFromBytes parses the standard wire encoding: header, varint tx count, transactions.
func NewBlockFromBytes(blockBytes []byte) (*Block, error) {
	if len(blockBytes) < BlockHeaderSize+1 {
		return nil, errors.NewBlockInvalidError("block is too short: %d bytes", len(blockBytes))
	}

	header, err := NewBlockHeaderFromBytes(blockBytes[:BlockHeaderSize])
	if err != nil {
		return nil, err
	}

	offset := BlockHeaderSize

	txCount, size := bt.NewVarIntFromBytes(blockBytes[offset:])
	offset += size

	block := &Block{
		Header:       header,
		Transactions: make([]*bt.Tx, 0),
	}

	for i := uint64(0); i < uint64(txCount); i++ {
		if offset >= len(blockBytes) {
			return nil, errors.NewBlockInvalidError("block ends after %d of %d transactions", i, txCount)
		}

		tx, read, err := bt.NewTxFromStream(blockBytes[offset:])
		if err != nil {
			return nil, errors.NewBlockInvalidError("failed to read transaction %d", i, err)
		}

		block.Transactions = append(block.Transactions, tx)
		offset += read
	}

	if offset != len(blockBytes) {
		return nil, errors.NewBlockInvalidError("block has %d trailing bytes", len(blockBytes)-offset)
	}

	return block, nil
}

func (b *Block) Hash() *chainhash.Hash {
	return b.Header.Hash()
}

func (b *Block) String() string {
	return b.Hash().String()
}

// CoinbaseTx returns the first transaction, or nil for an empty block.
func (b *Block) CoinbaseTx() *bt.Tx {
	if len(b.Transactions) == 0 {
		return nil
	}

	return b.Transactions[0]
}

func (b *Block) Bytes() []byte {
	var buf bytes.Buffer

	buf.Write(b.Header.Bytes())
	buf.Write(bt.VarInt(uint64(len(b.Transactions))).Bytes())

	for _, tx := range b.Transactions {
		buf.Write(tx.Bytes())
	}

	return buf.Bytes()
}

// CalculateMerkleRoot returns the merkle root over the transaction ids.
func (b *Block) CalculateMerkleRoot() *chainhash.Hash {
	leaves := make([]chainhash.Hash, 0, len(b.Transactions))

	for _, tx := range b.Transactions {
		leaves = append(leaves, *tx.TxIDChainHash())
	}

	root := util.BuildMerkleRoot(leaves)

	return &root
}

// UpdateMerkleRoot writes the merkle root of the current transactions into the header.
func (b *Block) UpdateMerkleRoot() {
	b.Header.HashMerkleRoot = b.CalculateMerkleRoot()
}

func (b *Block) CheckMerkleRoot() error {
	calculated := b.CalculateMerkleRoot()

	if b.Header.HashMerkleRoot == nil || !calculated.IsEqual(b.Header.HashMerkleRoot) {
		return errors.NewBlockInvalidError("bad-txnmrklroot: header %v, calculated %s", b.Header.HashMerkleRoot, calculated)
	}

	return nil
}

// Clone returns a deep copy. Transactions are copied field by field so the extended input data
// (previous satoshis and script) survives.
func (b *Block) Clone() *Block {
	clone := &Block{
		Header:       b.Header.Clone(),
		Transactions: make([]*bt.Tx, 0, len(b.Transactions)),
		Height:       b.Height,
	}

	for _, tx := range b.Transactions {
		clone.Transactions = append(clone.Transactions, CloneTx(tx))
	}

	return clone
}

func CloneTx(tx *bt.Tx) *bt.Tx {
	clone := bt.NewTx()
	clone.Version = tx.Version
	clone.LockTime = tx.LockTime

	for _, in := range tx.Inputs {
		c := &bt.Input{
			PreviousTxSatoshis: in.PreviousTxSatoshis,
			PreviousTxOutIndex: in.PreviousTxOutIndex,
			SequenceNumber:     in.SequenceNumber,
			UnlockingScript:    cloneScript(in.UnlockingScript),
			PreviousTxScript:   cloneScript(in.PreviousTxScript),
		}

		if prev := in.PreviousTxIDChainHash(); prev != nil {
			_ = c.PreviousTxIDAdd(prev)
		}

		clone.Inputs = append(clone.Inputs, c)
	}

	for _, out := range tx.Outputs {
		clone.Outputs = append(clone.Outputs, &bt.Output{
			Satoshis:      out.Satoshis,
			LockingScript: cloneScript(out.LockingScript),
		})
	}

	return clone
}

func cloneScript(s *bscript.Script) *bscript.Script {
	if s == nil {
		return nil
	}

	c := make(bscript.Script, len(*s))
	copy(c, *s)

	return &c
}
