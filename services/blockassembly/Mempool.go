package blockassembly

import (
	"sync"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/model"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
)

type txAndFee struct {
	tx  *bt.Tx
	fee uint64
}

// Mempool holds validated transactions waiting to be mined, in arrival order. There is no eviction
// or fee policy: every transaction added is offered to the next template until a block mines it.
type Mempool struct {
	logger ulogger.Logger
	mu     sync.RWMutex
	txs    []*txAndFee
	byID   map[chainhash.Hash]struct{}
}

func NewMempool(logger ulogger.Logger) *Mempool {
	initPrometheusMetrics()

	return &Mempool{
		logger: logger,
		txs:    make([]*txAndFee, 0),
		byID:   make(map[chainhash.Hash]struct{}),
	}
}

// AddTx queues tx with the fee it pays. Transactions must be added in dependency order.
func (m *Mempool) AddTx(tx *bt.Tx, fee uint64) error {
	if tx.IsCoinbase() {
		return errors.NewTxInvalidError("coinbase %s cannot be added to the mempool", tx.TxID())
	}

	txid := *tx.TxIDChainHash()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[txid]; exists {
		return errors.NewTxAlreadyExistsError("tx %s already in mempool", txid)
	}

	m.txs = append(m.txs, &txAndFee{tx: model.CloneTx(tx), fee: fee})
	m.byID[txid] = struct{}{}

	prometheusMempoolSize.Set(float64(len(m.txs)))

	return nil
}

// Transactions returns copies of the queued transactions and the sum of their fees.
func (m *Mempool) Transactions() ([]*bt.Tx, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txs := make([]*bt.Tx, 0, len(m.txs))

	var fees uint64

	for _, t := range m.txs {
		txs = append(txs, model.CloneTx(t.tx))
		fees += t.fee
	}

	return txs, fees
}

// RemoveMined drops every transaction the block contains.
func (m *Mempool) RemoveMined(block *model.Block) {
	mined := make(map[chainhash.Hash]struct{}, len(block.Transactions))
	for _, tx := range block.Transactions {
		mined[*tx.TxIDChainHash()] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	remaining := m.txs[:0]

	for _, t := range m.txs {
		txid := *t.tx.TxIDChainHash()

		if _, ok := mined[txid]; ok {
			delete(m.byID, txid)
			continue
		}

		remaining = append(remaining, t)
	}

	removed := len(m.txs) - len(remaining)
	m.txs = remaining

	if removed > 0 {
		m.logger.Debugf("[Mempool] removed %d transactions mined in block %s", removed, block.Hash())
	}

	prometheusMempoolSize.Set(float64(len(m.txs)))
}

func (m *Mempool) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.txs)
}
