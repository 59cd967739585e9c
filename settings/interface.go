package settings

import (
	"net/url"
	"time"

	"github.com/bsv-blockchain/go-chaincfg"
)

type Settings struct {
	ClientName      string
	DataFolder      string
	LogLevel        string
	ChainCfgParams  *chaincfg.Params
	Coinbase        CoinbaseSettings
	UtxoStore       UtxoStoreSettings
	BlockChain      BlockChainSettings
	BlockValidation BlockValidationSettings
	Miner           MinerSettings
	SupplyFuzz      SupplyFuzzSettings
}

type CoinbaseSettings struct {
	ArbitraryText string
}

type UtxoStoreSettings struct {
	UtxoStore            *url.URL
	DBTimeout            time.Duration
	PostgresMaxIdleConns int
	PostgresMaxOpenConns int
}

type BlockChainSettings struct {
	StoreURL *url.URL

	// MaxFutureBlockTime is the number of seconds a block timestamp may run ahead of the local clock.
	// Zero disables the check.
	MaxFutureBlockTime int
}

type BlockValidationSettings struct {
	// InvalidBlockTTL is how long a rejected block hash is remembered. Zero keeps it forever.
	InvalidBlockTTL time.Duration
}

type MinerSettings struct {
	// MaxNonce bounds the nonce search per grind. Zero searches the full 32-bit space.
	MaxNonce uint32
}

type SupplyFuzzSettings struct {
	DuplicateCoinbaseMaturityFactor int
	Workers                         int
}
