package blockchain

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/supplyfuzz/model"
)

// Store is the chain index: every accepted block, linked to its parent, with a single best tip.
// The reference chain only ever extends its tip; there are no reorgs.
type Store interface {
	GetHeader(ctx context.Context, blockHash *chainhash.Hash) (*model.BlockHeader, error)
	GetBlock(ctx context.Context, blockHash *chainhash.Hash) (*model.Block, error)
	GetBlockExists(ctx context.Context, blockHash *chainhash.Hash) (bool, error)
	GetBlockHeight(ctx context.Context, blockHash *chainhash.Hash) (uint32, error)
	GetBestBlockHeader(ctx context.Context) (*model.BlockHeader, uint32, error)
	// GetMedianTimePast returns the median timestamp of the block and up to 10 of its ancestors.
	GetMedianTimePast(ctx context.Context, blockHash *chainhash.Hash) (int64, error)
	// StoreBlock appends the block on top of the current tip and returns its height.
	StoreBlock(ctx context.Context, block *model.Block) (uint32, error)
}
