// Package sql provides a SQL implementation of the coin database.
// It supports both PostgreSQL and SQLite backends with automatic schema creation.
//
// # Usage
//
//	store, err := sql.New(ctx, logger, settings, &url.URL{
//	    Scheme: "sqlitememory",
//	    Path:   "/utxo",
//	})
//
// # Database Schema
//
// The store uses the following tables:
//   - outputs: one row per unspent, spendable output
//   - state: the block the outputs table reflects
//
// Both tables are emptied when the store is opened, so rows left behind by an earlier run of a
// file or server backed database are never mistaken for coins of the new chain.
//
// # Metrics
//
// The following Prometheus metrics are exposed:
//   - supplyfuzz_sql_utxo_get: Number of coin lookups
//   - supplyfuzz_sql_utxo_connect_block: Number of connected blocks
//   - supplyfuzz_sql_utxo_spent / supplyfuzz_sql_utxo_created: Rows removed and added
//   - supplyfuzz_sql_utxo_statistics_seconds: Duration of full set recomputations
//   - supplyfuzz_sql_utxo_errors: Number of errors by function and type
package sql

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"math"
	"net/url"
	"time"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	safeconversion "github.com/bsv-blockchain/go-safe-conversion"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/model"
	"github.com/bsv-blockchain/supplyfuzz/settings"
	"github.com/bsv-blockchain/supplyfuzz/stores/utxo"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
	"github.com/bsv-blockchain/supplyfuzz/util"
	"github.com/bsv-blockchain/supplyfuzz/util/usql"
)

type Store struct {
	logger    ulogger.Logger
	db        *usql.DB
	engine    util.SQLEngine
	dbTimeout time.Duration
}

func New(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (*Store, error) {
	initPrometheusMetrics()

	db, err := util.InitSQLDB(logger, storeURL, tSettings)
	if err != nil {
		return nil, errors.NewStorageError("failed to init sql db", err)
	}

	engine := util.SQLEngine(storeURL.Scheme)

	switch engine {
	case util.Postgres:
		if err = createPostgresSchema(ctx, db); err != nil {
			return nil, errors.NewStorageError("failed to create postgres schema", err)
		}

	case util.Sqlite, util.SqliteMemory:
		if err = createSqliteSchema(ctx, db); err != nil {
			return nil, errors.NewStorageError("failed to create sqlite schema", err)
		}

	default:
		return nil, errors.NewConfigurationError("unknown database engine: %s", storeURL.Scheme)
	}

	// the coin database always starts at genesis, matching the freshly created chain store
	if err = resetState(ctx, db); err != nil {
		_ = db.Close()
		return nil, errors.NewStorageError("failed to reset coin database", err)
	}

	dbTimeout := tSettings.UtxoStore.DBTimeout
	if dbTimeout <= 0 {
		dbTimeout = 5 * time.Second
	}

	return &Store{
		logger:    logger,
		db:        db,
		engine:    engine,
		dbTimeout: dbTimeout,
	}, nil
}

func (s *Store) GetCoin(ctx context.Context, outpoint model.Outpoint) (*utxo.Coin, error) {
	prometheusUtxoGet.Inc()

	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	q := `
		SELECT
		 locking_script
		,satoshis
		,block_height
		,coinbase
		FROM outputs
		WHERE hash = $1 AND idx = $2
	`

	var (
		lockingScript []byte
		satoshis      int64
		blockHeight   int64
		coinbase      bool
	)

	err := s.db.QueryRowContext(ctx, q, outpoint.TxID[:], outpoint.Index).Scan(&lockingScript, &satoshis, &blockHeight, &coinbase)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewUtxoNotFoundError("utxo %s not found", outpoint)
		}

		prometheusUtxoErrors.WithLabelValues("GetCoin", err.Error()).Inc()

		return nil, errors.NewStorageError("failed to get utxo %s", outpoint, err)
	}

	coin, err := newCoin(outpoint, lockingScript, satoshis, blockHeight, coinbase)
	if err != nil {
		return nil, err
	}

	return coin, nil
}

func (s *Store) HasUnspentOutputs(ctx context.Context, txid *chainhash.Hash) (bool, error) {
	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	var count int

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outputs WHERE hash = $1`, txid[:]).Scan(&count); err != nil {
		prometheusUtxoErrors.WithLabelValues("HasUnspentOutputs", err.Error()).Inc()
		return false, errors.NewStorageError("failed to count outputs of %s", txid, err)
	}

	return count > 0, nil
}

func (s *Store) ConnectBlock(ctx context.Context, block *model.Block, height uint32) (err error) {
	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageError("failed to begin transaction", err)
	}

	defer func() {
		if err != nil {
			prometheusUtxoErrors.WithLabelValues("ConnectBlock", err.Error()).Inc()

			if rollbackErr := txn.Rollback(); rollbackErr != nil {
				s.logger.Errorf("[ConnectBlock] failed to roll back block %s: %v", block.Hash(), rollbackErr)
			}
		}
	}()

	var spent, created int

	for i, tx := range block.Transactions {
		if i > 0 {
			for _, input := range tx.Inputs {
				if err = s.spend(ctx, txn, input); err != nil {
					return err
				}

				spent++
			}
		}

		txid := tx.TxIDChainHash()
		isCoinbase := i == 0

		for vout, output := range tx.Outputs {
			if utxo.IsUnspendable(output) {
				continue
			}

			voutU32, convErr := safeconversion.IntToUint32(vout)
			if convErr != nil {
				err = errors.NewProcessingError("output index out of range", convErr)
				return err
			}

			if err = s.insert(ctx, txn, txid, voutU32, output, height, isCoinbase); err != nil {
				return err
			}

			created++
		}
	}

	if _, err = txn.ExecContext(ctx, `DELETE FROM state`); err != nil {
		err = errors.NewStorageError("failed to clear state", err)
		return err
	}

	if _, err = txn.ExecContext(ctx, `INSERT INTO state (id, best_block, height) VALUES (1, $1, $2)`, block.Hash()[:], height); err != nil {
		err = errors.NewStorageError("failed to store state", err)
		return err
	}

	if err = txn.Commit(); err != nil {
		err = errors.NewStorageError("failed to commit block %s", block.Hash(), err)
		return err
	}

	prometheusUtxoConnectBlock.Inc()
	prometheusUtxoSpent.Add(float64(spent))
	prometheusUtxoCreated.Add(float64(created))

	s.logger.Debugf("[ConnectBlock] connected block %s at height %d: %d spent, %d created", block.Hash(), height, spent, created)

	return nil
}

func (s *Store) spend(ctx context.Context, txn *usql.Tx, input *bt.Input) error {
	prevTxID := input.PreviousTxIDChainHash()

	result, err := txn.ExecContext(ctx, `DELETE FROM outputs WHERE hash = $1 AND idx = $2`, prevTxID[:], input.PreviousTxOutIndex)
	if err != nil {
		return errors.NewStorageError("failed to spend %s:%d", prevTxID, input.PreviousTxOutIndex, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorageError("failed to spend %s:%d", prevTxID, input.PreviousTxOutIndex, err)
	}

	if rows != 1 {
		return errors.NewUtxoNotFoundError("utxo %s:%d not found", prevTxID, input.PreviousTxOutIndex)
	}

	return nil
}

func (s *Store) insert(ctx context.Context, txn *usql.Tx, txid *chainhash.Hash, vout uint32, output *bt.Output, height uint32, coinbase bool) error {
	utxoHash, err := util.UTXOHashFromOutput(txid, output, vout)
	if err != nil {
		return err
	}

	satoshis, err := safeconversion.Uint64ToInt64(output.Satoshis)
	if err != nil {
		return errors.NewProcessingError("output value of %s:%d out of range", txid, vout, err)
	}

	q := `
		INSERT INTO outputs (
		 hash
		,idx
		,locking_script
		,satoshis
		,block_height
		,coinbase
		,utxo_hash
		) VALUES (
		 $1
		,$2
		,$3
		,$4
		,$5
		,$6
		,$7
		)
	`

	if _, err = txn.ExecContext(ctx, q, txid[:], vout, []byte(*output.LockingScript), satoshis, height, coinbase, utxoHash[:]); err != nil {
		return errors.NewUtxoAlreadyExistsError("failed to insert utxo %s:%d", txid, vout, err)
	}

	return nil
}

// ComputeStatistics scans the outputs table in (hash, idx) order. Every row is checked against its stored
// utxo_hash, and the identity hash is sha256 over utxo_hash || varint(height*2 + coinbase) for all rows.
func (s *Store) ComputeStatistics(ctx context.Context) (*utxo.Statistics, error) {
	start := time.Now()
	defer func() {
		prometheusUtxoStatistics.Observe(time.Since(start).Seconds())
	}()

	stats := &utxo.Statistics{}

	var (
		bestBlock []byte
		height    int64
	)

	err := s.db.QueryRowContext(ctx, `SELECT best_block, height FROM state WHERE id = 1`).Scan(&bestBlock, &height)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		// nothing connected yet
	case err != nil:
		prometheusUtxoErrors.WithLabelValues("ComputeStatistics", err.Error()).Inc()
		return nil, errors.NewStorageError("failed to read utxo state", err)
	default:
		hash, hashErr := chainhash.NewHash(bestBlock)
		if hashErr != nil {
			return nil, errors.NewStorageError("invalid best block in utxo state", hashErr)
		}

		stats.BestBlock = *hash

		if stats.Height, err = int64ToUint32(height); err != nil {
			return nil, err
		}
	}

	q := `
		SELECT
		 hash
		,idx
		,locking_script
		,satoshis
		,block_height
		,coinbase
		,utxo_hash
		FROM outputs
		ORDER BY hash, idx
	`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		prometheusUtxoErrors.WithLabelValues("ComputeStatistics", err.Error()).Inc()
		return nil, errors.NewStorageError("failed to scan outputs", err)
	}

	defer rows.Close()

	hasher := sha256.New()

	for rows.Next() {
		var (
			txidBytes      []byte
			idx            int64
			lockingScript  []byte
			satoshis       int64
			blockHeight    int64
			coinbase       bool
			storedUTXOHash []byte
		)

		if err = rows.Scan(&txidBytes, &idx, &lockingScript, &satoshis, &blockHeight, &coinbase, &storedUTXOHash); err != nil {
			return nil, errors.NewStorageError("failed to read output row", err)
		}

		txid, err := chainhash.NewHash(txidBytes)
		if err != nil {
			return nil, errors.NewStorageError("invalid txid in outputs table", err)
		}

		index, err := int64ToUint32(idx)
		if err != nil {
			return nil, err
		}

		coin, err := newCoin(model.NewOutpoint(txid, index), lockingScript, satoshis, blockHeight, coinbase)
		if err != nil {
			return nil, err
		}

		utxoHash, err := util.UTXOHashFromOutput(txid, coin.Output, index)
		if err != nil {
			return nil, err
		}

		stored, err := chainhash.NewHash(storedUTXOHash)
		if err != nil {
			return nil, errors.NewStorageError("invalid utxo hash stored for %s:%d", txid, index, err)
		}

		if !utxoHash.IsEqual(stored) {
			return nil, errors.NewStorageError("utxo %s:%d does not match its stored hash", txid, index)
		}

		if stats.TotalAmount+coin.Output.Satoshis < stats.TotalAmount {
			return nil, errors.NewProcessingError("utxo set total overflows at %s:%d", txid, index)
		}

		stats.TotalAmount += coin.Output.Satoshis
		stats.Count++

		code := uint64(coin.Height) * 2
		if coin.IsCoinbase {
			code++
		}

		_, _ = hasher.Write(utxoHash[:])
		_, _ = hasher.Write(bt.VarInt(code).Bytes())
	}

	if err = rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed to iterate outputs", err)
	}

	copy(stats.Hash[:], hasher.Sum(nil))

	return stats, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func newCoin(outpoint model.Outpoint, lockingScript []byte, satoshis, blockHeight int64, coinbase bool) (*utxo.Coin, error) {
	if satoshis < 0 {
		return nil, errors.NewStorageError("negative value stored for %s", outpoint)
	}

	height, err := int64ToUint32(blockHeight)
	if err != nil {
		return nil, err
	}

	return &utxo.Coin{
		Outpoint: outpoint,
		Output: &bt.Output{
			Satoshis:      uint64(satoshis),
			LockingScript: bscript.NewFromBytes(lockingScript),
		},
		Height:     height,
		IsCoinbase: coinbase,
	}, nil
}

func int64ToUint32(v int64) (uint32, error) {
	if v < 0 || v > math.MaxUint32 {
		return 0, errors.NewStorageError("stored value %d out of range", v)
	}

	return uint32(v), nil
}

func createPostgresSchema(ctx context.Context, db *usql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS outputs (
		 hash           BYTEA NOT NULL
		,idx            BIGINT NOT NULL
		,locking_script BYTEA NOT NULL
		,satoshis       BIGINT NOT NULL
		,block_height   BIGINT NOT NULL
		,coinbase       BOOLEAN NOT NULL
		,utxo_hash      BYTEA NOT NULL
		,PRIMARY KEY (hash, idx)
		);
	`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create outputs table", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS state (
		 id         INTEGER PRIMARY KEY
		,best_block BYTEA NOT NULL
		,height     BIGINT NOT NULL
		);
	`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create state table", err)
	}

	return nil
}

func createSqliteSchema(ctx context.Context, db *usql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS outputs (
		 hash           BLOB NOT NULL
		,idx            BIGINT NOT NULL
		,locking_script BLOB NOT NULL
		,satoshis       BIGINT NOT NULL
		,block_height   BIGINT NOT NULL
		,coinbase       BOOLEAN NOT NULL
		,utxo_hash      BLOB NOT NULL
		,PRIMARY KEY (hash, idx)
		);
	`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create outputs table", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS state (
		 id         INTEGER PRIMARY KEY
		,best_block BLOB NOT NULL
		,height     BIGINT NOT NULL
		);
	`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create state table", err)
	}

	return nil
}

func resetState(ctx context.Context, db *usql.DB) error {
	txn, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, q := range []string{`DELETE FROM outputs`, `DELETE FROM state`} {
		if _, err = txn.ExecContext(ctx, q); err != nil {
			_ = txn.Rollback()
			return err
		}
	}

	return txn.Commit()
}
