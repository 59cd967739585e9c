package blockchain

import (
	"bytes"
	"net/url"

	"github.com/bsv-blockchain/go-chaincfg"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/model"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
)

func NewStore(logger ulogger.Logger, storeURL *url.URL, params *chaincfg.Params) (Store, error) {
	switch storeURL.Scheme {
	case "memory":
		genesis, err := GenesisBlock(params)
		if err != nil {
			return nil, err
		}

		return NewMemoryStore(logger, genesis), nil
	}

	return nil, errors.NewConfigurationError("unknown blockchain store scheme: %s", storeURL.Scheme)
}

// GenesisBlock converts the network's genesis block into a model.Block at height 0.
func GenesisBlock(params *chaincfg.Params) (*model.Block, error) {
	if params == nil || params.GenesisBlock == nil {
		return nil, errors.NewConfigurationError("chain params have no genesis block")
	}

	var buf bytes.Buffer
	if err := params.GenesisBlock.Serialize(&buf); err != nil {
		return nil, errors.NewProcessingError("failed to serialize genesis block", err)
	}

	genesis, err := model.NewBlockFromBytes(buf.Bytes())
	if err != nil {
		return nil, errors.NewProcessingError("failed to parse genesis block", err)
	}

	if !genesis.Hash().IsEqual(params.GenesisHash) {
		return nil, errors.NewConfigurationError("genesis hash mismatch: %s != %s", genesis.Hash(), params.GenesisHash)
	}

	return genesis, nil
}
