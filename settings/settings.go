package settings

import (
	"fmt"
	"math"
	"time"

	"github.com/bsv-blockchain/go-chaincfg"
	safeconversion "github.com/bsv-blockchain/go-safe-conversion"
)

// NewSettings reads the gocore configuration. It panics on an unknown network, like the rest of
// the start-up path, since nothing can run without chain parameters.
func NewSettings() *Settings {
	params, err := chaincfg.GetChainParams(getString("network", "regtest"))
	if err != nil {
		panic(err)
	}

	// copy, so overrides never leak into the package level params
	paramsCopy := *params

	if maturity := getInt("coinbase_maturity", 0); maturity > 0 {
		m, err := safeconversion.IntToUint32(maturity)
		if err != nil || m > math.MaxUint16 {
			panic(fmt.Sprintf("invalid coinbase_maturity %d", maturity))
		}

		paramsCopy.CoinbaseMaturity = uint16(m)
	}

	maxNonce, err := safeconversion.IntToUint32(getInt("supplyfuzz_maxNonce", 0))
	if err != nil {
		panic(err)
	}

	return &Settings{
		ClientName:     getString("clientName", "supplyfuzz"),
		DataFolder:     getString("dataFolder", "data"),
		LogLevel:       getString("logLevel", "INFO"),
		ChainCfgParams: &paramsCopy,
		Coinbase: CoinbaseSettings{
			ArbitraryText: getString("coinbase_arbitrary_text", ""),
		},
		UtxoStore: UtxoStoreSettings{
			UtxoStore:            getURL("supplyfuzz_utxoStore", "sqlitememory:///utxo"),
			DBTimeout:            getDuration("utxostore_dbTimeoutMillis", 5000, time.Millisecond),
			PostgresMaxIdleConns: getInt("utxostore_postgresMaxIdleConns", 10),
			PostgresMaxOpenConns: getInt("utxostore_postgresMaxOpenConns", 80),
		},
		BlockChain: BlockChainSettings{
			StoreURL:           getURL("blockchain_store", "memory:///"),
			MaxFutureBlockTime: getInt("blockchain_maxFutureBlockTime", 7200),
		},
		BlockValidation: BlockValidationSettings{
			InvalidBlockTTL: getDuration("blockvalidation_invalidBlockTTLSeconds", 0, time.Second),
		},
		Miner: MinerSettings{
			MaxNonce: maxNonce,
		},
		SupplyFuzz: SupplyFuzzSettings{
			DuplicateCoinbaseMaturityFactor: getInt("supplyfuzz_duplicateCoinbaseMaturityFactor", 20),
			Workers:                         getInt("supplyfuzz_workers", 1),
		},
	}
}
