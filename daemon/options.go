package daemon

import (
	"github.com/bsv-blockchain/supplyfuzz/stores/blockchain"
	"github.com/bsv-blockchain/supplyfuzz/stores/utxo"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
)

// Option is a functional option type for configuring the Node.
type Option func(*Node)

// WithLoggerFactory provides a custom logger factory for the node and its services.
func WithLoggerFactory(factory func(serviceName string) ulogger.Logger) Option {
	return func(n *Node) {
		n.loggerFactory = factory
	}
}

// WithBlockchainStore uses store instead of the one named by the blockchain_store setting.
func WithBlockchainStore(store blockchain.Store) Option {
	return func(n *Node) {
		n.chain = store
	}
}

// WithUtxoStore uses store instead of the one named by the utxo store setting. The node closes it on Stop.
func WithUtxoStore(store utxo.Store) Option {
	return func(n *Node) {
		n.utxoStore = store
	}
}
