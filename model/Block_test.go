package model

import (
	"encoding/hex"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBlockFromBytes(t *testing.T) {
	t.Run("block with 4 transactions", func(t *testing.T) {
		block, err := NewBlockFromBytes(blockBytes)
		require.NoError(t, err)

		require.Len(t, block.Transactions, 4)
		assert.Equal(t, "611fd97881064670555ac01db182c46134e770aa47d1a794b7df2767e42f3f89", block.Hash().String())
		assert.Equal(t, "b2d725550ba419ef7452626f75faa8538bca695ab9284127b2210368455137d1", block.CoinbaseTx().TxID())
		assert.True(t, block.CoinbaseTx().IsCoinbase())

		require.NoError(t, block.CheckMerkleRoot())
		assert.Equal(t, blockBytes, block.Bytes())
	})

	t.Run("block 1", func(t *testing.T) {
		b, _ := hex.DecodeString(block1)

		block, err := NewBlockFromBytes(b)
		require.NoError(t, err)

		require.Len(t, block.Transactions, 1)
		assert.Equal(t, block.Header.HashMerkleRoot.String(), block.CoinbaseTx().TxID())
		require.NoError(t, block.CheckMerkleRoot())
	})

	t.Run("trailing bytes", func(t *testing.T) {
		b, _ := hex.DecodeString(block1 + "00")

		_, err := NewBlockFromBytes(b)
		require.Error(t, err)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := NewBlockFromBytes(blockBytes[:200])
		require.Error(t, err)
	})
}

func TestBlockMerkleRoot(t *testing.T) {
	block, err := NewBlockFromBytes(blockBytes)
	require.NoError(t, err)

	block.Header.HashMerkleRoot = &chainhash.Hash{}
	require.Error(t, block.CheckMerkleRoot())

	block.UpdateMerkleRoot()
	require.NoError(t, block.CheckMerkleRoot())
	assert.Equal(t, "69813d58079d5d2924cf62b9f183bc058c04a98e35e67060dcfb71ad5435cb8a", block.Header.HashMerkleRoot.String())
}

func TestBlockClone(t *testing.T) {
	block, err := NewBlockFromBytes(blockBytes)
	require.NoError(t, err)

	block.Height = 34424
	block.Transactions[1].Inputs[0].PreviousTxSatoshis = 1234
	block.Transactions[1].Inputs[0].PreviousTxScript = bscript.NewFromBytes([]byte{bscript.OpTRUE})

	clone := block.Clone()

	assert.Equal(t, block.Bytes(), clone.Bytes())
	assert.Equal(t, block.Hash(), clone.Hash())
	assert.Equal(t, uint32(34424), clone.Height)
	assert.Equal(t, block.Transactions[1].ExtendedBytes(), clone.Transactions[1].ExtendedBytes())

	clone.Transactions[0].Outputs[0].Satoshis = 1
	(*clone.Transactions[1].Inputs[0].PreviousTxScript)[0] = bscript.OpFALSE
	clone.Transactions = clone.Transactions[:1]
	clone.Header.Nonce++

	assert.Len(t, block.Transactions, 4)
	assert.Equal(t, uint64(12200), block.Transactions[0].Outputs[0].Satoshis)
	assert.Equal(t, byte(bscript.OpTRUE), (*block.Transactions[1].Inputs[0].PreviousTxScript)[0])
	assert.Equal(t, "611fd97881064670555ac01db182c46134e770aa47d1a794b7df2767e42f3f89", block.Hash().String())
}

func TestExtendedTxCommitment(t *testing.T) {
	block, err := NewBlockFromBytes(blockBytes)
	require.NoError(t, err)

	assert.Equal(t, -1, block.ExtendedTxCommitmentIndex())

	_, found := block.ExtendedTxCommitment()
	assert.False(t, found)

	root := block.CalculateExtendedTxRoot()

	block.Transactions[0].AddOutput(&bt.Output{
		Satoshis:      0,
		LockingScript: ExtendedTxCommitmentScript(root),
	})

	assert.Equal(t, 1, block.ExtendedTxCommitmentIndex())

	committed, found := block.ExtendedTxCommitment()
	require.True(t, found)
	assert.Equal(t, root, committed)

	// the commitment lives in the coinbase, whose leaf is zeroed
	assert.Equal(t, root, block.CalculateExtendedTxRoot())

	// changing the extended data of a transaction changes the root
	block.Transactions[2].Inputs[0].PreviousTxSatoshis++
	assert.NotEqual(t, root, block.CalculateExtendedTxRoot())

	script := ExtendedTxCommitmentScript(root)
	assert.True(t, IsExtendedTxCommitment(script))
	assert.True(t, script.IsData())

	(*script)[3] = 0x00
	assert.False(t, IsExtendedTxCommitment(script))
	assert.False(t, IsExtendedTxCommitment(nil))
}

func TestOutpoint(t *testing.T) {
	txid, err := chainhash.NewHashFromStr("b2d725550ba419ef7452626f75faa8538bca695ab9284127b2210368455137d1")
	require.NoError(t, err)

	o := NewOutpoint(txid, 1)
	assert.Equal(t, "b2d725550ba419ef7452626f75faa8538bca695ab9284127b2210368455137d1:1", o.String())
	assert.False(t, o.IsNull())
	assert.True(t, Outpoint{}.IsNull())
	assert.Equal(t, o, NewOutpoint(txid, 1))
}
