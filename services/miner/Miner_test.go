package miner

import (
	"context"
	"sync"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/model"
	"github.com/bsv-blockchain/supplyfuzz/services/blockvalidation"
	"github.com/bsv-blockchain/supplyfuzz/settings"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
	"github.com/bsv-blockchain/supplyfuzz/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	opTrue      = bscript.NewFromBytes([]byte{bscript.OpTRUE})
	regtestBits = model.NewNBitFromUint32(0x207fffff)
)

// fakeProcessor publishes a block checked event and moves the height the way a node would, or
// misbehaves on request.
type fakeProcessor struct {
	mu       sync.Mutex
	notifier *blockvalidation.Notifier
	height   uint32

	reject      bool
	duplicate   bool
	skipHeight  bool
	otherHash   bool
	err         error
	submissions int
}

func (p *fakeProcessor) ProcessBlock(_ context.Context, block *model.Block, _ bool) (bool, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.submissions++

	if p.err != nil {
		return false, false, p.err
	}

	if p.duplicate {
		return false, true, nil
	}

	hash := *block.Hash()
	if p.otherHash {
		hash = chainhash.Hash{0xff}
	}

	if p.reject {
		p.notifier.Publish(blockvalidation.BlockCheckedEvent{Hash: hash, Err: errors.NewBlockInvalidError("bad-cb-amount")})
		return true, false, nil
	}

	if !p.skipHeight {
		p.height++
	}

	p.notifier.Publish(blockvalidation.BlockCheckedEvent{Hash: hash})

	return true, true, nil
}

func (p *fakeProcessor) BestHeight(_ context.Context) (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.height, nil
}

type fakeAssembler struct {
	height uint32
}

func (a *fakeAssembler) BuildTemplate(_ context.Context, coinbaseScript *bscript.Script) (*model.Block, error) {
	return testBlock(a.height, coinbaseScript)
}

func testBlock(height uint32, lockingScript *bscript.Script) (*model.Block, error) {
	script, err := util.BuildCoinbaseScript(int64(height), "")
	if err != nil {
		return nil, err
	}

	coinbase, err := util.NewCoinbaseTx(script, &bt.Output{Satoshis: 50, LockingScript: lockingScript})
	if err != nil {
		return nil, err
	}

	return model.NewTestBlock(&chainhash.Hash{0x01}, 1_700_000_000, regtestBits, height, coinbase), nil
}

func setup(t *testing.T, maxNonce uint32) (*Miner, *fakeProcessor) {
	notifier := blockvalidation.NewNotifier(context.Background(), ulogger.TestLogger{})
	t.Cleanup(notifier.Stop)

	processor := &fakeProcessor{notifier: notifier, height: 10}

	tSettings := &settings.Settings{
		Miner: settings.MinerSettings{MaxNonce: maxNonce},
	}

	return NewMiner(ulogger.TestLogger{}, tSettings, processor, notifier, processor), processor
}

func TestGrind(t *testing.T) {
	m, _ := setup(t, 0)

	block, err := testBlock(11, opTrue)
	require.NoError(t, err)

	merkleRoot := *block.Header.HashMerkleRoot

	require.NoError(t, m.Grind(context.Background(), block))

	ok, _, err := block.Header.HasMetTargetDifficulty()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, merkleRoot, *block.Header.HashMerkleRoot)

	// a solved header is left alone
	nonce := block.Header.Nonce
	require.NoError(t, m.Grind(context.Background(), block))
	assert.Equal(t, nonce, block.Header.Nonce)
}

func TestGrindNonceExhausted(t *testing.T) {
	m, _ := setup(t, 16)

	block, err := testBlock(11, opTrue)
	require.NoError(t, err)

	// a target of 1 is out of reach
	block.Header.Bits = model.NewNBitFromUint32(0x03000001)

	err = m.Grind(context.Background(), block)
	require.ErrorIs(t, err, errors.ErrNonceExhausted)
	assert.True(t, errors.IsInvariantViolation(err))
	assert.Equal(t, uint32(16), block.Header.Nonce)
}

func TestGrindCanceled(t *testing.T) {
	m, _ := setup(t, 0)

	block, err := testBlock(11, opTrue)
	require.NoError(t, err)

	block.Header.Bits = model.NewNBitFromUint32(0x03000001)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, m.Grind(ctx, block), errors.ErrContextCanceled)
}

func TestMine(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		m, processor := setup(t, 0)

		block, err := testBlock(11, opTrue)
		require.NoError(t, err)

		outcome, err := m.Mine(context.Background(), block)
		require.NoError(t, err)

		assert.True(t, outcome.Accepted)
		require.NotNil(t, outcome.Coinbase)
		assert.Equal(t, *block.CoinbaseTx().TxIDChainHash(), outcome.Coinbase.TxID)
		assert.Equal(t, uint32(0), outcome.Coinbase.Index)
		assert.Equal(t, uint32(11), processor.height)
	})

	t.Run("rejected", func(t *testing.T) {
		m, processor := setup(t, 0)
		processor.reject = true

		block, err := testBlock(11, opTrue)
		require.NoError(t, err)

		outcome, err := m.Mine(context.Background(), block)
		require.NoError(t, err)

		assert.False(t, outcome.Accepted)
		assert.Nil(t, outcome.Coinbase)
		assert.Equal(t, uint32(10), processor.height)
	})

	t.Run("events for other blocks are ignored", func(t *testing.T) {
		m, processor := setup(t, 0)
		processor.otherHash = true

		block, err := testBlock(11, opTrue)
		require.NoError(t, err)

		// the node says valid and grows, but never about this block
		_, err = m.Mine(context.Background(), block)
		require.ErrorIs(t, err, errors.ErrHeightDelta)
	})

	t.Run("duplicate reported as processed", func(t *testing.T) {
		m, processor := setup(t, 0)
		processor.duplicate = true

		block, err := testBlock(11, opTrue)
		require.NoError(t, err)

		_, err = m.Mine(context.Background(), block)
		require.ErrorIs(t, err, errors.ErrDuplicateAccepted)
		assert.True(t, errors.IsInvariantViolation(err))
	})

	t.Run("accepted without growing the chain", func(t *testing.T) {
		m, processor := setup(t, 0)
		processor.skipHeight = true

		block, err := testBlock(11, opTrue)
		require.NoError(t, err)

		_, err = m.Mine(context.Background(), block)
		require.ErrorIs(t, err, errors.ErrHeightDelta)
		assert.True(t, errors.IsInvariantViolation(err))
	})

	t.Run("processing error", func(t *testing.T) {
		m, processor := setup(t, 0)
		processor.err = errors.NewStorageError("disk gone")

		block, err := testBlock(11, opTrue)
		require.NoError(t, err)

		_, err = m.Mine(context.Background(), block)
		require.ErrorIs(t, err, errors.ErrStorageError)
		assert.False(t, errors.IsInvariantViolation(err))
	})

	t.Run("grind failure skips submission", func(t *testing.T) {
		m, processor := setup(t, 4)

		block, err := testBlock(11, opTrue)
		require.NoError(t, err)

		block.Header.Bits = model.NewNBitFromUint32(0x03000001)

		_, err = m.Mine(context.Background(), block)
		require.ErrorIs(t, err, errors.ErrNonceExhausted)
		assert.Equal(t, 0, processor.submissions)
	})
}

func TestGenerateBlock(t *testing.T) {
	m, processor := setup(t, 0)

	block, err := m.GenerateBlock(context.Background(), &fakeAssembler{height: 11}, opTrue)
	require.NoError(t, err)

	assert.Equal(t, opTrue.String(), block.CoinbaseTx().Outputs[0].LockingScript.String())
	assert.Equal(t, uint32(11), processor.height)

	processor.reject = true

	_, err = m.GenerateBlock(context.Background(), &fakeAssembler{height: 12}, opTrue)
	require.ErrorIs(t, err, errors.ErrBlockInvalid)
}

func TestStateCatcher(t *testing.T) {
	hash := chainhash.Hash{0x01}
	catcher := newStateCatcher(hash)

	_, ok := catcher.read()
	assert.False(t, ok)

	catcher.BlockChecked(blockvalidation.BlockCheckedEvent{Hash: chainhash.Hash{0x02}})

	_, ok = catcher.read()
	assert.False(t, ok)

	catcher.BlockChecked(blockvalidation.BlockCheckedEvent{Hash: hash, Err: errors.NewBlockInvalidError("first")})
	catcher.BlockChecked(blockvalidation.BlockCheckedEvent{Hash: hash})

	event, ok := catcher.read()
	require.True(t, ok)
	assert.True(t, event.IsValid())

	_, ok = catcher.read()
	assert.False(t, ok)
}
