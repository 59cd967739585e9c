package blockchain

import (
	"context"
	"encoding/hex"
	"net/url"
	"testing"

	"github.com/bsv-blockchain/go-chaincfg"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/model"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// regtest block 1, mined on top of the regtest genesis block
const block1 = "0000002006226e46111a0b59caaf126043eb5bbf28c34f3a5e332a1fc7b2b73cf188910f1633819a69afbd7ce1f1a01c3b786fcbb023274f3b15172b24feadd4c80e6c6a8b491267ffff7f20040000000102000000010000000000000000000000000000000000000000000000000000000000000000ffffffff03510101ffffffff0100f2052a01000000232103656065e6886ca1e947de3471c9e723673ab6ba34724476417fa9fcef8bafa604ac00000000"

func newTestStore(t *testing.T) Store {
	storeURL, err := url.Parse("memory:///")
	require.NoError(t, err)

	store, err := NewStore(ulogger.TestLogger{}, storeURL, &chaincfg.RegressionNetParams)
	require.NoError(t, err)

	return store
}

func TestGenesisBlock(t *testing.T) {
	genesis, err := GenesisBlock(&chaincfg.RegressionNetParams)
	require.NoError(t, err)

	assert.Equal(t, chaincfg.RegressionNetParams.GenesisHash.String(), genesis.Hash().String())
	require.Len(t, genesis.Transactions, 1)
	require.NoError(t, genesis.CheckMerkleRoot())

	_, err = GenesisBlock(nil)
	require.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	header, height, err := store.GetBestBlockHeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), height)
	assert.Equal(t, chaincfg.RegressionNetParams.GenesisHash.String(), header.Hash().String())

	mtp, err := store.GetMedianTimePast(ctx, header.Hash())
	require.NoError(t, err)
	assert.Equal(t, int64(header.Timestamp), mtp)

	b, _ := hex.DecodeString(block1)
	block, err := model.NewBlockFromBytes(b)
	require.NoError(t, err)

	newHeight, err := store.StoreBlock(ctx, block)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), newHeight)

	best, height, err := store.GetBestBlockHeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), height)
	assert.Equal(t, block.Hash(), best.Hash())

	exists, err := store.GetBlockExists(ctx, block.Hash())
	require.NoError(t, err)
	assert.True(t, exists)

	stored, err := store.GetBlock(ctx, block.Hash())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stored.Height)
	assert.Equal(t, block.Bytes(), stored.Bytes())

	blockHeight, err := store.GetBlockHeight(ctx, block.Hash())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), blockHeight)

	// with two blocks the upper one is the median
	mtp, err = store.GetMedianTimePast(ctx, block.Hash())
	require.NoError(t, err)
	assert.Equal(t, int64(block.Header.Timestamp), mtp)

	t.Run("duplicate", func(t *testing.T) {
		_, err := store.StoreBlock(ctx, block)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBlockExists))
	})

	t.Run("not extending tip", func(t *testing.T) {
		orphan := block.Clone()
		orphan.Header.Nonce++

		_, err := store.StoreBlock(ctx, orphan)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBlockInvalid))
	})

	t.Run("unknown block", func(t *testing.T) {
		orphan := block.Clone()
		orphan.Header.Nonce++

		_, err := store.GetHeader(ctx, orphan.Hash())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBlockNotFound))
	})
}

func TestNewStoreUnknownScheme(t *testing.T) {
	storeURL, _ := url.Parse("postgres://localhost/chain")

	_, err := NewStore(ulogger.TestLogger{}, storeURL, &chaincfg.RegressionNetParams)
	require.Error(t, err)
}
