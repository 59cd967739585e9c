package blockvalidation

import (
	"context"
	"net/url"
	"sync"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/go-chaincfg"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/model"
	"github.com/bsv-blockchain/supplyfuzz/services/blockassembly"
	"github.com/bsv-blockchain/supplyfuzz/settings"
	"github.com/bsv-blockchain/supplyfuzz/stores/blockchain"
	"github.com/bsv-blockchain/supplyfuzz/stores/utxo"
	utxosql "github.com/bsv-blockchain/supplyfuzz/stores/utxo/sql"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
	"github.com/bsv-blockchain/supplyfuzz/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var opTrue = bscript.NewFromBytes([]byte{bscript.OpTRUE})

type recorder struct {
	mu     sync.Mutex
	events []BlockCheckedEvent
}

func (r *recorder) BlockChecked(event BlockCheckedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *recorder) last(t *testing.T) BlockCheckedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	require.NotEmpty(t, r.events)

	return r.events[len(r.events)-1]
}

type testSetup struct {
	ctx        context.Context
	params     *chaincfg.Params
	chain      blockchain.Store
	utxoStore  utxo.Store
	assembler  *blockassembly.BlockAssembler
	notifier   *Notifier
	validation *BlockValidation
	events     *recorder
}

func setup(t *testing.T, maturity uint16) *testSetup {
	ctx := context.Background()

	params := chaincfg.RegressionNetParams
	params.CoinbaseMaturity = maturity

	tSettings := &settings.Settings{
		DataFolder:     t.TempDir(),
		ChainCfgParams: &params,
		BlockChain:     settings.BlockChainSettings{MaxFutureBlockTime: 7200},
	}

	genesis, err := blockchain.GenesisBlock(&params)
	require.NoError(t, err)

	chain := blockchain.NewMemoryStore(ulogger.TestLogger{}, genesis)

	storeURL, err := url.Parse("sqlitememory:///utxo")
	require.NoError(t, err)

	utxoStore, err := utxosql.New(ctx, ulogger.TestLogger{}, tSettings, storeURL)
	require.NoError(t, err)

	mempool := blockassembly.NewMempool(ulogger.TestLogger{})
	notifier := NewNotifier(ctx, ulogger.TestLogger{})
	validation := NewBlockValidation(ulogger.TestLogger{}, tSettings, chain, utxoStore, mempool, notifier)

	events := &recorder{}
	notifier.Subscribe(events)

	t.Cleanup(func() {
		validation.Stop()
		notifier.Stop()
		_ = utxoStore.Close()
	})

	return &testSetup{
		ctx:        ctx,
		params:     &params,
		chain:      chain,
		utxoStore:  utxoStore,
		assembler:  blockassembly.NewBlockAssembler(ulogger.TestLogger{}, tSettings, chain, mempool),
		notifier:   notifier,
		validation: validation,
		events:     events,
	}
}

// template returns a template with txs appended and the commitment regenerated. It is not ground.
func (s *testSetup) template(t *testing.T, txs ...*bt.Tx) *model.Block {
	block, err := s.assembler.BuildTemplate(s.ctx, opTrue)
	require.NoError(t, err)

	block.Transactions = append(block.Transactions, txs...)

	s.regenerate(t, block)

	return block
}

func (s *testSetup) regenerate(t *testing.T, block *model.Block) {
	parent, err := s.chain.GetHeader(s.ctx, block.Header.HashPrevBlock)
	require.NoError(t, err)

	require.NoError(t, s.assembler.RegenerateCommitment(block, parent))
}

func (s *testSetup) mine(t *testing.T, block *model.Block) {
	require.NoError(t, model.GrindTestBlock(block))

	newBlock, processed, err := s.validation.ProcessBlock(s.ctx, block, true)
	require.NoError(t, err)
	require.True(t, newBlock)
	require.True(t, processed)

	require.NoError(t, s.notifier.Sync(s.ctx))
	assert.True(t, s.events.last(t).IsValid())
}

func (s *testSetup) stats(t *testing.T) *utxo.Statistics {
	stats, err := s.utxoStore.ComputeStatistics(s.ctx)
	require.NoError(t, err)

	return stats
}

func (s *testSetup) height(t *testing.T) uint32 {
	_, height, err := s.chain.GetBestBlockHeader(s.ctx)
	require.NoError(t, err)

	return height
}

func spend(t *testing.T, prev *bt.Tx, vout uint32, amounts ...uint64) *bt.Tx {
	tx := bt.NewTx()

	input := &bt.Input{
		PreviousTxOutIndex: vout,
		PreviousTxSatoshis: prev.Outputs[vout].Satoshis,
		PreviousTxScript:   prev.Outputs[vout].LockingScript,
		UnlockingScript:    &bscript.Script{},
		SequenceNumber:     0xffffffff,
	}
	require.NoError(t, input.PreviousTxIDAdd(prev.TxIDChainHash()))

	tx.Inputs = append(tx.Inputs, input)

	for _, amount := range amounts {
		tx.AddOutput(&bt.Output{Satoshis: amount, LockingScript: opTrue})
	}

	return tx
}

func TestProcessBlock(t *testing.T) {
	s := setup(t, 1)

	block := s.template(t)
	s.mine(t, block)

	assert.Equal(t, uint32(1), s.height(t))
	assert.Equal(t, *block.Hash(), s.events.last(t).Hash)

	stats := s.stats(t)
	assert.Equal(t, util.GetBlockSubsidyForHeight(1, s.params), stats.TotalAmount)
	assert.Equal(t, uint32(1), stats.Height)
	assert.Equal(t, *block.Hash(), stats.BestBlock)

	t.Run("already in chain", func(t *testing.T) {
		newBlock, processed, err := s.validation.ProcessBlock(s.ctx, block, true)
		require.NoError(t, err)
		assert.False(t, newBlock)
		assert.True(t, processed)
		assert.Equal(t, uint32(1), s.height(t))
	})
}

func TestProcessBlockSpends(t *testing.T) {
	s := setup(t, 1)

	block1 := s.template(t)
	s.mine(t, block1)

	coinbase := block1.CoinbaseTx()
	subsidy := coinbase.Outputs[0].Satoshis

	// a chain of two spends in one block, paying a fee of 10 that the coinbase does not claim
	first := spend(t, coinbase, 0, subsidy-10-100, 100)
	second := spend(t, first, 1, 100)

	block2 := s.template(t, first, second)
	s.mine(t, block2)

	assert.Equal(t, uint32(2), s.height(t))

	stats := s.stats(t)
	assert.Equal(t, subsidy-10+util.GetBlockSubsidyForHeight(2, s.params), stats.TotalAmount)
	assert.Equal(t, uint64(3), stats.Count)

	_, err := s.utxoStore.GetCoin(s.ctx, model.NewOutpoint(coinbase.TxIDChainHash(), 0))
	require.ErrorIs(t, err, errors.ErrUtxoNotFound)
}

func TestProcessBlockRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, s *testSetup, block *model.Block)
		reason string
	}{
		{
			name: "merkle root",
			mutate: func(t *testing.T, s *testSetup, block *model.Block) {
				block.Header.HashMerkleRoot = &chainhash.Hash{1}
			},
			reason: "bad-txnmrklroot",
		},
		{
			name: "coinbase amount",
			mutate: func(t *testing.T, s *testSetup, block *model.Block) {
				block.CoinbaseTx().Outputs[0].Satoshis++
				s.regenerate(t, block)
			},
			reason: "bad-cb-amount",
		},
		{
			name: "previous block",
			mutate: func(t *testing.T, s *testSetup, block *model.Block) {
				block.Header.HashPrevBlock = &chainhash.Hash{1}
			},
			reason: "bad-prevblk",
		},
		{
			name: "time too old",
			mutate: func(t *testing.T, s *testSetup, block *model.Block) {
				tip, _, err := s.chain.GetBestBlockHeader(s.ctx)
				require.NoError(t, err)

				block.Header.Timestamp = tip.Timestamp
			},
			reason: "time-too-old",
		},
		{
			name: "difficulty bits",
			mutate: func(t *testing.T, s *testSetup, block *model.Block) {
				block.Header.Bits = model.NewNBitFromUint32(0x2100ffff)
			},
			reason: "bad-diffbits",
		},
		{
			name: "missing commitment",
			mutate: func(t *testing.T, s *testSetup, block *model.Block) {
				block.Transactions = append(block.Transactions, spend(t, block.CoinbaseTx(), 0, 1))
				coinbase := block.CoinbaseTx()
				coinbase.Outputs = coinbase.Outputs[:1]
				block.UpdateMerkleRoot()
			},
			reason: "bad-extended-commitment-missing",
		},
		{
			name: "wrong commitment",
			mutate: func(t *testing.T, s *testSetup, block *model.Block) {
				coinbase := block.CoinbaseTx()
				commitment := *coinbase.Outputs[len(coinbase.Outputs)-1].LockingScript
				commitment[len(commitment)-1] ^= 0xff
				block.UpdateMerkleRoot()
			},
			reason: "bad-extended-commitment",
		},
		{
			name: "missing input",
			mutate: func(t *testing.T, s *testSetup, block *model.Block) {
				missing, err := util.NewCoinbaseTx(block.CoinbaseTx().Inputs[0].UnlockingScript, &bt.Output{Satoshis: 7, LockingScript: opTrue})
				require.NoError(t, err)

				block.Transactions = append(block.Transactions, spend(t, missing, 0, 7))
				s.regenerate(t, block)
			},
			reason: "bad-txns-inputs-missingorspent",
		},
		{
			name: "second coinbase",
			mutate: func(t *testing.T, s *testSetup, block *model.Block) {
				other, err := util.NewCoinbaseTx(bscript.NewFromBytes([]byte{bscript.Op2, bscript.OpFALSE}), &bt.Output{Satoshis: 1, LockingScript: opTrue})
				require.NoError(t, err)

				block.Transactions = append(block.Transactions, other)
				s.regenerate(t, block)
			},
			reason: "bad-cb-multiple",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setup(t, 1)
			before := s.stats(t)

			block := s.template(t)
			tt.mutate(t, s, block)
			require.NoError(t, model.GrindTestBlock(block))

			newBlock, processed, err := s.validation.ProcessBlock(s.ctx, block, true)
			require.NoError(t, err)
			assert.True(t, newBlock)
			assert.False(t, processed)

			require.NoError(t, s.notifier.Sync(s.ctx))

			event := s.events.last(t)
			assert.Equal(t, *block.Hash(), event.Hash)
			require.False(t, event.IsValid())
			assert.Contains(t, event.Err.Error(), tt.reason)
			assert.True(t, errors.IsBlockRejection(event.Err))

			assert.Equal(t, uint32(0), s.height(t))
			assert.Equal(t, before, s.stats(t))

			// the second submission is answered from the invalid block cache
			newBlock, processed, err = s.validation.ProcessBlock(s.ctx, block, true)
			require.NoError(t, err)
			assert.False(t, newBlock)
			assert.False(t, processed)
		})
	}
}

func TestProcessBlockHighHash(t *testing.T) {
	s := setup(t, 1)

	block := s.template(t)

	for {
		ok, _, err := block.Header.HasMetTargetDifficulty()
		require.NoError(t, err)

		if !ok {
			break
		}

		block.Header.Nonce++
	}

	newBlock, processed, err := s.validation.ProcessBlock(s.ctx, block, true)
	require.NoError(t, err)
	assert.True(t, newBlock)
	assert.False(t, processed)

	require.NoError(t, s.notifier.Sync(s.ctx))
	assert.Contains(t, s.events.last(t).Err.Error(), "high-hash")
}

func TestProcessBlockDuplicateCoinbase(t *testing.T) {
	s := setup(t, 1)

	block1 := s.template(t)
	s.mine(t, block1)

	before := s.stats(t)

	// same script, value and commitment as the unspent coinbase at height 1
	block2 := s.template(t)
	block2.CoinbaseTx().Inputs[0].UnlockingScript = block1.CoinbaseTx().Inputs[0].UnlockingScript
	block2.UpdateMerkleRoot()
	require.Equal(t, block1.CoinbaseTx().TxID(), block2.CoinbaseTx().TxID())

	require.NoError(t, model.GrindTestBlock(block2))

	newBlock, processed, err := s.validation.ProcessBlock(s.ctx, block2, true)
	require.NoError(t, err)
	assert.True(t, newBlock)
	assert.False(t, processed)

	require.NoError(t, s.notifier.Sync(s.ctx))
	assert.Contains(t, s.events.last(t).Err.Error(), "bad-txns-BIP30")

	assert.Equal(t, uint32(1), s.height(t))
	assert.Equal(t, before, s.stats(t))
}

func TestProcessBlockImmatureSpend(t *testing.T) {
	s := setup(t, 2)

	block1 := s.template(t)
	s.mine(t, block1)

	coinbase := block1.CoinbaseTx()

	block2 := s.template(t, spend(t, coinbase, 0, coinbase.Outputs[0].Satoshis))
	require.NoError(t, model.GrindTestBlock(block2))

	_, processed, err := s.validation.ProcessBlock(s.ctx, block2, true)
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, s.notifier.Sync(s.ctx))
	require.ErrorIs(t, s.events.last(t).Err, errors.ErrTxCoinbaseImmature)

	// one block later the coinbase has matured
	s.mine(t, s.template(t))

	block3 := s.template(t, spend(t, coinbase, 0, coinbase.Outputs[0].Satoshis))
	s.mine(t, block3)

	assert.Equal(t, uint32(3), s.height(t))
}

func TestProcessBlockInBlockDoubleSpend(t *testing.T) {
	s := setup(t, 1)

	block1 := s.template(t)
	s.mine(t, block1)

	before := s.stats(t)
	coinbase := block1.CoinbaseTx()

	block2 := s.template(t,
		spend(t, coinbase, 0, coinbase.Outputs[0].Satoshis),
		spend(t, coinbase, 0, coinbase.Outputs[0].Satoshis-1),
	)
	require.NoError(t, model.GrindTestBlock(block2))

	_, processed, err := s.validation.ProcessBlock(s.ctx, block2, true)
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, s.notifier.Sync(s.ctx))
	assert.Contains(t, s.events.last(t).Err.Error(), "bad-txns-inputs-missingorspent")
	assert.Equal(t, before, s.stats(t))
}

func TestProcessBlockWithoutForce(t *testing.T) {
	s := setup(t, 1)

	block := s.template(t)
	block.Header.HashPrevBlock = &chainhash.Hash{1}
	require.NoError(t, model.GrindTestBlock(block))

	newBlock, processed, err := s.validation.ProcessBlock(s.ctx, block, false)
	require.NoError(t, err)
	assert.True(t, newBlock)
	assert.False(t, processed)

	// not remembered as invalid
	newBlock, processed, err = s.validation.ProcessBlock(s.ctx, block, true)
	require.NoError(t, err)
	assert.True(t, newBlock)
	assert.False(t, processed)
}
