// Package logger wraps a coin database and logs every call with its caller chain.
package logger

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/supplyfuzz/model"
	"github.com/bsv-blockchain/supplyfuzz/stores/utxo"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
)

type Store struct {
	logger ulogger.Logger
	store  utxo.Store
}

func New(logger ulogger.Logger, store utxo.Store) utxo.Store {
	return &Store{
		logger: logger,
		store:  store,
	}
}

func caller() string {
	var callers []string

	depth := 5

	for i := 0; i < depth; i++ {
		pc, file, line, ok := runtime.Caller(2 + i)
		if !ok {
			break
		}

		// keep the path relative to the module
		folders := strings.Split(file, string(filepath.Separator))
		for j, folder := range folders {
			if folder == "supplyfuzz" {
				folders = folders[j+1:]
				break
			}
		}

		file = filepath.Join(folders...)

		funcName := runtime.FuncForPC(pc).Name()
		funcPaths := strings.Split(funcName, "/")
		funcName = funcPaths[len(funcPaths)-1]

		callers = append(callers, fmt.Sprintf("called from %s: %s:%d", funcName, file, line))
	}

	return strings.Join(callers, ",")
}

func (s *Store) GetCoin(ctx context.Context, outpoint model.Outpoint) (*utxo.Coin, error) {
	coin, err := s.store.GetCoin(ctx, outpoint)

	if coin != nil {
		s.logger.Infof("[UTXOStore][logger][GetCoin] outpoint %s satoshis %d height %d coinbase %t err %v : %s",
			outpoint, coin.Output.Satoshis, coin.Height, coin.IsCoinbase, err, caller())
	} else {
		s.logger.Infof("[UTXOStore][logger][GetCoin] outpoint %s err %v : %s", outpoint, err, caller())
	}

	return coin, err
}

func (s *Store) HasUnspentOutputs(ctx context.Context, txid *chainhash.Hash) (bool, error) {
	res, err := s.store.HasUnspentOutputs(ctx, txid)
	s.logger.Infof("[UTXOStore][logger][HasUnspentOutputs] txid %s res %t err %v : %s", txid, res, err, caller())

	return res, err
}

func (s *Store) ConnectBlock(ctx context.Context, block *model.Block, height uint32) error {
	err := s.store.ConnectBlock(ctx, block, height)

	txDetails := make([]string, len(block.Transactions))
	for i, tx := range block.Transactions {
		txDetails[i] = fmt.Sprintf("{Tx %d: %s, inputs %d, outputs %d}", i, tx.TxID(), len(tx.Inputs), len(tx.Outputs))
	}

	s.logger.Infof("[UTXOStore][logger][ConnectBlock] block %s height %d txs: [%s], err %v : %s",
		block.Hash(), height, strings.Join(txDetails, ", "), err, caller())

	return err
}

func (s *Store) ComputeStatistics(ctx context.Context) (*utxo.Statistics, error) {
	stats, err := s.store.ComputeStatistics(ctx)

	if stats != nil {
		s.logger.Infof("[UTXOStore][logger][ComputeStatistics] height %d total %d count %d hash %s err %v : %s",
			stats.Height, stats.TotalAmount, stats.Count, stats.Hash, err, caller())
	} else {
		s.logger.Infof("[UTXOStore][logger][ComputeStatistics] err %v : %s", err, caller())
	}

	return stats, err
}

func (s *Store) Close() error {
	err := s.store.Close()
	s.logger.Infof("[UTXOStore][logger][Close] err %v : %s", err, caller())

	return err
}
