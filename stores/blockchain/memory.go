package blockchain

import (
	"context"
	"sync"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/model"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
	"github.com/bsv-blockchain/supplyfuzz/util"
	"github.com/dolthub/swiss"
)

type blockNode struct {
	block  *model.Block
	height uint32
	parent *blockNode
}

// MemoryStore keeps the whole chain in a swiss map guarded by a RWMutex.
type MemoryStore struct {
	logger   ulogger.Logger
	mu       sync.RWMutex
	nodes    *swiss.Map[chainhash.Hash, *blockNode]
	byHeight []*blockNode
}

func NewMemoryStore(logger ulogger.Logger, genesis *model.Block) *MemoryStore {
	genesis = genesis.Clone()
	genesis.Height = 0

	node := &blockNode{block: genesis}

	nodes := swiss.NewMap[chainhash.Hash, *blockNode](1024)
	nodes.Put(*genesis.Hash(), node)

	return &MemoryStore{
		logger:   logger,
		nodes:    nodes,
		byHeight: []*blockNode{node},
	}
}

func (m *MemoryStore) node(blockHash *chainhash.Hash) (*blockNode, error) {
	node, ok := m.nodes.Get(*blockHash)
	if !ok {
		return nil, errors.NewBlockNotFoundError("block %s not found", blockHash)
	}

	return node, nil
}

func (m *MemoryStore) GetHeader(_ context.Context, blockHash *chainhash.Hash) (*model.BlockHeader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, err := m.node(blockHash)
	if err != nil {
		return nil, err
	}

	return node.block.Header.Clone(), nil
}

func (m *MemoryStore) GetBlock(_ context.Context, blockHash *chainhash.Hash) (*model.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, err := m.node(blockHash)
	if err != nil {
		return nil, err
	}

	return node.block.Clone(), nil
}

func (m *MemoryStore) GetBlockExists(_ context.Context, blockHash *chainhash.Hash) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ok := m.nodes.Has(*blockHash)

	return ok, nil
}

func (m *MemoryStore) GetBlockHeight(_ context.Context, blockHash *chainhash.Hash) (uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, err := m.node(blockHash)
	if err != nil {
		return 0, err
	}

	return node.height, nil
}

func (m *MemoryStore) GetBestBlockHeader(_ context.Context) (*model.BlockHeader, uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tip := m.byHeight[len(m.byHeight)-1]

	return tip.block.Header.Clone(), tip.height, nil
}

func (m *MemoryStore) GetMedianTimePast(_ context.Context, blockHash *chainhash.Hash) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, err := m.node(blockHash)
	if err != nil {
		return 0, err
	}

	timestamps := make([]int64, 0, util.MedianTimeBlocks)
	for n := node; n != nil && len(timestamps) < util.MedianTimeBlocks; n = n.parent {
		timestamps = append(timestamps, int64(n.block.Header.Timestamp))
	}

	return util.CalcPastMedianTime(timestamps)
}

func (m *MemoryStore) StoreBlock(_ context.Context, block *model.Block) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := block.Hash()

	if m.nodes.Has(*hash) {
		return 0, errors.NewBlockExistsError("block %s already stored", hash)
	}

	tip := m.byHeight[len(m.byHeight)-1]
	if !block.Header.HashPrevBlock.IsEqual(tip.block.Hash()) {
		return 0, errors.NewBlockInvalidError("block %s does not extend tip %s", hash, tip.block.Hash())
	}

	stored := block.Clone()
	stored.Height = tip.height + 1

	node := &blockNode{block: stored, height: stored.Height, parent: tip}
	m.nodes.Put(*hash, node)
	m.byHeight = append(m.byHeight, node)

	m.logger.Debugf("[MemoryStore] stored block %s at height %d", hash, node.height)

	return node.height, nil
}
