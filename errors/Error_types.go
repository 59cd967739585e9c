package errors

var (
	ErrUnknown                 = New(ERR_UNKNOWN, "unknown error")
	ErrInvalidArgument         = New(ERR_INVALID_ARGUMENT, "invalid argument")
	ErrThresholdExceeded       = New(ERR_THRESHOLD_EXCEEDED, "threshold exceeded")
	ErrNotFound                = New(ERR_NOT_FOUND, "not found")
	ErrProcessing              = New(ERR_PROCESSING, "error processing")
	ErrConfiguration           = New(ERR_CONFIGURATION, "configuration error")
	ErrContext                 = New(ERR_CONTEXT, "context error")
	ErrContextCanceled         = New(ERR_CONTEXT_CANCELED, "context canceled")
	ErrError                   = New(ERR_ERROR, "generic error")
	ErrBlockNotFound           = New(ERR_BLOCK_NOT_FOUND, "block not found")
	ErrBlockInvalid            = New(ERR_BLOCK_INVALID, "block invalid")
	ErrBlockExists             = New(ERR_BLOCK_EXISTS, "block exists")
	ErrBlockError              = New(ERR_BLOCK_ERROR, "block error")
	ErrTxNotFound              = New(ERR_TX_NOT_FOUND, "tx not found")
	ErrTxInvalid               = New(ERR_TX_INVALID, "tx invalid")
	ErrTxInvalidDoubleSpend    = New(ERR_TX_INVALID_DOUBLE_SPEND, "tx invalid double spend")
	ErrTxAlreadyExists         = New(ERR_TX_ALREADY_EXISTS, "tx already exists")
	ErrTxCoinbaseImmature      = New(ERR_TX_COINBASE_IMMATURE, "tx spends immature coinbase")
	ErrTxError                 = New(ERR_TX_ERROR, "tx error")
	ErrTxCoinbaseMissingHeight = New(ERR_TX_COINBASE_MISSING_BLOCK_HEIGHT, "the coinbase signature script doesn't have the block height")
	ErrServiceUnavailable      = New(ERR_SERVICE_UNAVAILABLE, "service unavailable")
	ErrServiceNotStarted       = New(ERR_SERVICE_NOT_STARTED, "service not started")
	ErrServiceError            = New(ERR_SERVICE_ERROR, "service error")
	ErrStorageUnavailable      = New(ERR_STORAGE_UNAVAILABLE, "storage unavailable")
	ErrStorageNotStarted       = New(ERR_STORAGE_NOT_STARTED, "storage not started")
	ErrStorageError            = New(ERR_STORAGE_ERROR, "storage error")
	ErrSpent                   = New(ERR_SPENT, "utxo already spent")
	ErrUtxoNotFound            = New(ERR_UTXO_NOT_FOUND, "utxo not found")
	ErrUtxoAlreadyExists       = New(ERR_UTXO_ALREADY_EXISTS, "utxo already exists")
	ErrStateInitialization     = New(ERR_STATE_INITIALIZATION, "error initializing state")
	ErrStateError              = New(ERR_STATE_ERROR, "error in state")
	ErrSupplyMismatch          = New(ERR_SUPPLY_MISMATCH, "circulating supply does not match utxo set total")
	ErrHeightDelta             = New(ERR_HEIGHT_DELTA, "unexpected chain height delta after block submission")
	ErrDuplicateAccepted       = New(ERR_DUPLICATE_ACCEPTED, "block reported as duplicate and newly processed")
	ErrEmptyLedger             = New(ERR_EMPTY_LEDGER, "no outputs recorded to pick from")
	ErrNonceExhausted          = New(ERR_NONCE_EXHAUSTED, "nonce space exhausted")
	ErrStatsChanged            = New(ERR_STATS_CHANGED, "utxo set changed after rejected block")
	ErrDuplicateCoinbaseMissed = New(ERR_DUPLICATE_COINBASE_MISSED, "duplicate coinbase script not found at planned height")
	ErrUnexpectedChainHeight   = New(ERR_UNEXPECTED_CHAIN_HEIGHT, "unexpected chain height")
)

// errors initialization functions

func NewUnknownError(message string, params ...interface{}) error {
	return New(ERR_UNKNOWN, message, params...)
}
func NewInvalidArgumentError(message string, params ...interface{}) error {
	return New(ERR_INVALID_ARGUMENT, message, params...)
}
func NewThresholdExceededError(message string, params ...interface{}) error {
	return New(ERR_THRESHOLD_EXCEEDED, message, params...)
}
func NewNotFoundError(message string, params ...interface{}) error {
	return New(ERR_NOT_FOUND, message, params...)
}
func NewProcessingError(message string, params ...interface{}) error {
	return New(ERR_PROCESSING, message, params...)
}
func NewConfigurationError(message string, params ...interface{}) error {
	return New(ERR_CONFIGURATION, message, params...)
}
func NewContextError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT, message, params...)
}
func NewContextCanceledError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT_CANCELED, message, params...)
}
func NewError(message string, params ...interface{}) error {
	return New(ERR_ERROR, message, params...)
}
func NewBlockNotFoundError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_NOT_FOUND, message, params...)
}
func NewBlockInvalidError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_INVALID, message, params...)
}
func NewBlockExistsError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_EXISTS, message, params...)
}
func NewBlockError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_ERROR, message, params...)
}
func NewTxNotFoundError(message string, params ...interface{}) error {
	return New(ERR_TX_NOT_FOUND, message, params...)
}
func NewTxInvalidError(message string, params ...interface{}) error {
	return New(ERR_TX_INVALID, message, params...)
}
func NewTxInvalidDoubleSpendError(message string, params ...interface{}) error {
	return New(ERR_TX_INVALID_DOUBLE_SPEND, message, params...)
}
func NewTxAlreadyExistsError(message string, params ...interface{}) error {
	return New(ERR_TX_ALREADY_EXISTS, message, params...)
}
func NewTxCoinbaseImmatureError(message string, params ...interface{}) error {
	return New(ERR_TX_COINBASE_IMMATURE, message, params...)
}
func NewTxError(message string, params ...interface{}) error {
	return New(ERR_TX_ERROR, message, params...)
}
func NewTxCoinbaseMissingHeightError(message string, params ...interface{}) error {
	return New(ERR_TX_COINBASE_MISSING_BLOCK_HEIGHT, message, params...)
}
func NewServiceUnavailableError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_UNAVAILABLE, message, params...)
}
func NewServiceNotStartedError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_NOT_STARTED, message, params...)
}
func NewServiceError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_ERROR, message, params...)
}
func NewStorageUnavailableError(message string, params ...interface{}) error {
	return New(ERR_STORAGE_UNAVAILABLE, message, params...)
}
func NewStorageNotStartedError(message string, params ...interface{}) error {
	return New(ERR_STORAGE_NOT_STARTED, message, params...)
}
func NewStorageError(message string, params ...interface{}) error {
	return New(ERR_STORAGE_ERROR, message, params...)
}
func NewSpentError(message string, params ...interface{}) error {
	return New(ERR_SPENT, message, params...)
}
func NewUtxoNotFoundError(message string, params ...interface{}) error {
	return New(ERR_UTXO_NOT_FOUND, message, params...)
}
func NewUtxoAlreadyExistsError(message string, params ...interface{}) error {
	return New(ERR_UTXO_ALREADY_EXISTS, message, params...)
}
func NewStateInitializationError(message string, params ...interface{}) error {
	return New(ERR_STATE_INITIALIZATION, message, params...)
}
func NewStateError(message string, params ...interface{}) error {
	return New(ERR_STATE_ERROR, message, params...)
}

// The harness constructors return *Error so callers can attach data before returning.

func NewSupplyMismatchError(message string, params ...interface{}) *Error {
	return New(ERR_SUPPLY_MISMATCH, message, params...)
}
func NewHeightDeltaError(message string, params ...interface{}) *Error {
	return New(ERR_HEIGHT_DELTA, message, params...)
}
func NewDuplicateAcceptedError(message string, params ...interface{}) *Error {
	return New(ERR_DUPLICATE_ACCEPTED, message, params...)
}
func NewEmptyLedgerError(message string, params ...interface{}) *Error {
	return New(ERR_EMPTY_LEDGER, message, params...)
}
func NewNonceExhaustedError(message string, params ...interface{}) *Error {
	return New(ERR_NONCE_EXHAUSTED, message, params...)
}
func NewStatsChangedError(message string, params ...interface{}) *Error {
	return New(ERR_STATS_CHANGED, message, params...)
}
func NewDuplicateCoinbaseMissedError(message string, params ...interface{}) *Error {
	return New(ERR_DUPLICATE_COINBASE_MISSED, message, params...)
}
func NewUnexpectedChainHeightError(message string, params ...interface{}) *Error {
	return New(ERR_UNEXPECTED_CHAIN_HEIGHT, message, params...)
}
