package supplyfuzz

import (
	"context"
	"net/url"
	"sync"
	"testing"

	"github.com/bsv-blockchain/go-chaincfg"
	"github.com/bsv-blockchain/supplyfuzz/daemon"
	"github.com/bsv-blockchain/supplyfuzz/model"
	"github.com/bsv-blockchain/supplyfuzz/services/blockvalidation"
	"github.com/bsv-blockchain/supplyfuzz/settings"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
	"github.com/bsv-blockchain/supplyfuzz/util"
	"github.com/stretchr/testify/require"
)

// newTestNode starts a regtest node whose coinbases mature after maturity blocks.
func newTestNode(t testing.TB, maturity uint16) *daemon.Node {
	params := chaincfg.RegressionNetParams
	params.CoinbaseMaturity = maturity

	utxoURL, err := url.Parse("sqlitememory:///utxo")
	require.NoError(t, err)

	chainURL, err := url.Parse("memory:///")
	require.NoError(t, err)

	tSettings := &settings.Settings{
		DataFolder:     t.TempDir(),
		ChainCfgParams: &params,
		UtxoStore:      settings.UtxoStoreSettings{UtxoStore: utxoURL},
		BlockChain: settings.BlockChainSettings{
			StoreURL:           chainURL,
			MaxFutureBlockTime: 7200,
		},
		SupplyFuzz: settings.SupplyFuzzSettings{DuplicateCoinbaseMaturityFactor: 20},
	}

	node, err := daemon.NewNode(context.Background(), ulogger.TestLogger{}, tSettings)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = node.Stop()
	})

	return node
}

func subsidies(node *daemon.Node, heights ...uint32) uint64 {
	var total uint64

	for _, height := range heights {
		total += util.GetBlockSubsidyForHeight(height, node.Settings().ChainCfgParams)
	}

	return total
}

func tipBlock(t *testing.T, node *daemon.Node) *model.Block {
	ctx := context.Background()

	tip, _, err := node.BestHeader(ctx)
	require.NoError(t, err)

	block, err := node.Chain().GetBlock(ctx, tip.Hash())
	require.NoError(t, err)

	return block
}

// blockAt walks back from the tip to the block at height.
func blockAt(t *testing.T, node *daemon.Node, height uint32) *model.Block {
	ctx := context.Background()

	block := tipBlock(t, node)

	for {
		blockHeight, err := node.Chain().GetBlockHeight(ctx, block.Hash())
		require.NoError(t, err)
		require.GreaterOrEqual(t, blockHeight, height)

		if blockHeight == height {
			return block
		}

		block, err = node.Chain().GetBlock(ctx, block.Header.HashPrevBlock)
		require.NoError(t, err)
	}
}

// rejections collects the reason of every block the node refuses.
type rejections struct {
	node    *daemon.Node
	mu      sync.Mutex
	reasons []string
}

func recordRejections(t *testing.T, node *daemon.Node) *rejections {
	r := &rejections{node: node}

	node.Notifier().Subscribe(r)
	t.Cleanup(func() {
		node.Notifier().Unsubscribe(r)
	})

	return r
}

func (r *rejections) BlockChecked(event blockvalidation.BlockCheckedEvent) {
	if event.IsValid() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.reasons = append(r.reasons, event.Err.Error())
}

// all waits for pending events and returns the reasons seen so far.
func (r *rejections) all(t *testing.T) []string {
	require.NoError(t, r.node.Notifier().Sync(context.Background()))

	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.reasons...)
}
