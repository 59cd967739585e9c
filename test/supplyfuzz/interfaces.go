package supplyfuzz

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/supplyfuzz/model"
	"github.com/bsv-blockchain/supplyfuzz/services/miner"
	"github.com/bsv-blockchain/supplyfuzz/stores/utxo"
)

type TemplateAssembler interface {
	BuildTemplate(ctx context.Context, coinbaseScript *bscript.Script) (*model.Block, error)
}

// CommitmentRegenerator replaces the extended transaction commitment of block, which must build on parent,
// and updates its merkle root.
type CommitmentRegenerator interface {
	RegenerateCommitment(block *model.Block, parent *model.BlockHeader) error
}

type ChainView interface {
	BestHeight(ctx context.Context) (uint32, error)
	BestHeader(ctx context.Context) (*model.BlockHeader, uint32, error)
	MedianTimePast(ctx context.Context) (int64, error)
}

// UtxoStatistician recomputes the supply from the persisted coin database.
type UtxoStatistician interface {
	ComputeStatistics(ctx context.Context) (*utxo.Statistics, error)
}

type BlockMiner interface {
	Mine(ctx context.Context, block *model.Block) (*miner.Outcome, error)
}
