package factory

import (
	"context"
	"net/url"

	"github.com/bsv-blockchain/supplyfuzz/settings"
	"github.com/bsv-blockchain/supplyfuzz/stores/utxo"
	"github.com/bsv-blockchain/supplyfuzz/stores/utxo/sql"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
)

func init() {
	newSQLStore := func(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (utxo.Store, error) {
		return sql.New(ctx, logger, tSettings, storeURL)
	}

	availableDatabases["postgres"] = newSQLStore
	availableDatabases["sqlite"] = newSQLStore
	availableDatabases["sqlitememory"] = newSQLStore
}
