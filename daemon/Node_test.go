package daemon

import (
	"context"
	"net/url"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-chaincfg"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/settings"
	"github.com/bsv-blockchain/supplyfuzz/stores/blockchain"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
	"github.com/bsv-blockchain/supplyfuzz/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings(t *testing.T) *settings.Settings {
	params := chaincfg.RegressionNetParams

	return &settings.Settings{
		DataFolder:     t.TempDir(),
		ChainCfgParams: &params,
		UtxoStore: settings.UtxoStoreSettings{
			UtxoStore: mustParseURL(t, "sqlitememory:///utxo"),
		},
		BlockChain: settings.BlockChainSettings{
			StoreURL:           mustParseURL(t, "memory:///"),
			MaxFutureBlockTime: 7200,
		},
	}
}

func mustParseURL(t *testing.T, rawURL string) *url.URL {
	u, err := url.Parse(rawURL)
	require.NoError(t, err)

	return u
}

func TestNewNode(t *testing.T) {
	ctx := context.Background()
	tSettings := testSettings(t)

	node, err := NewNode(ctx, ulogger.TestLogger{}, tSettings)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, node.Stop())
	}()

	height, err := node.BestHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), height)

	tip, _, err := node.BestHeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, *tSettings.ChainCfgParams.GenesisHash, *tip.Hash())

	mtp, err := node.MedianTimePast(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(tip.Timestamp), mtp)

	stats, err := node.ComputeStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.TotalAmount)
	assert.Equal(t, uint64(0), stats.Count)
}

func TestNodeGeneratesBlocks(t *testing.T) {
	ctx := context.Background()
	tSettings := testSettings(t)

	node, err := NewNode(ctx, ulogger.TestLogger{}, tSettings)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, node.Stop())
	}()

	opTrue := bscript.NewFromBytes([]byte{bscript.OpTRUE})

	var expected uint64

	for i := uint32(1); i <= 3; i++ {
		block, err := node.Miner().GenerateBlock(ctx, node.Assembler(), opTrue)
		require.NoError(t, err)

		expected += util.GetBlockSubsidyForHeight(i, tSettings.ChainCfgParams)

		height, err := node.BestHeight(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, height)

		tip, _, err := node.BestHeader(ctx)
		require.NoError(t, err)
		assert.Equal(t, *block.Hash(), *tip.Hash())
	}

	stats, err := node.ComputeStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, expected, stats.TotalAmount)
	assert.Equal(t, uint32(3), stats.Height)
}

func TestNodeOptions(t *testing.T) {
	ctx := context.Background()
	tSettings := testSettings(t)

	genesis, err := blockchain.GenesisBlock(tSettings.ChainCfgParams)
	require.NoError(t, err)

	chain := blockchain.NewMemoryStore(ulogger.TestLogger{}, genesis)

	var services []string

	node, err := NewNode(ctx, ulogger.TestLogger{}, tSettings,
		WithBlockchainStore(chain),
		WithLoggerFactory(func(serviceName string) ulogger.Logger {
			services = append(services, serviceName)
			return ulogger.TestLogger{}
		}),
	)
	require.NoError(t, err)

	assert.Same(t, chain, node.Chain())
	assert.Contains(t, services, "blockvalidation")
	assert.Contains(t, services, "miner")
	assert.NotContains(t, services, "blockchain")

	require.NoError(t, node.Stop())

	// stopping twice is harmless
	require.NoError(t, node.Stop())
}

func TestNewNodeConfiguration(t *testing.T) {
	ctx := context.Background()

	t.Run("missing chain params", func(t *testing.T) {
		_, err := NewNode(ctx, ulogger.TestLogger{}, &settings.Settings{})
		require.ErrorIs(t, err, errors.ErrConfiguration)
	})

	t.Run("unknown utxo store", func(t *testing.T) {
		tSettings := testSettings(t)
		tSettings.UtxoStore.UtxoStore = mustParseURL(t, "aerospike://localhost:3000/test")

		_, err := NewNode(ctx, ulogger.TestLogger{}, tSettings)
		require.ErrorIs(t, err, errors.ErrConfiguration)
	})

	t.Run("unknown blockchain store", func(t *testing.T) {
		tSettings := testSettings(t)
		tSettings.BlockChain.StoreURL = mustParseURL(t, "postgres://localhost/chain")

		_, err := NewNode(ctx, ulogger.TestLogger{}, tSettings)
		require.ErrorIs(t, err, errors.ErrConfiguration)
	})
}
