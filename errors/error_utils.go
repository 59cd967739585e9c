// Package errors provides the coded error type used throughout the harness and its collaborators.
package errors

// IsInvariantViolation reports whether err carries one of the harness invariant codes.
// These are never expected during a healthy run and must abort it.
func IsInvariantViolation(err error) bool {
	if err == nil {
		return false
	}

	var tErr *Error
	if !As(err, &tErr) {
		return false
	}

	for tErr != nil {
		switch tErr.Code() {
		case ERR_SUPPLY_MISMATCH,
			ERR_HEIGHT_DELTA,
			ERR_DUPLICATE_ACCEPTED,
			ERR_EMPTY_LEDGER,
			ERR_NONCE_EXHAUSTED,
			ERR_STATS_CHANGED,
			ERR_DUPLICATE_COINBASE_MISSED,
			ERR_UNEXPECTED_CHAIN_HEIGHT:
			return true
		}

		next, ok := tErr.WrappedErr().(*Error)
		if !ok {
			return false
		}

		tErr = next
	}

	return false
}

// IsBlockRejection reports whether err describes a block or transaction that failed consensus checks,
// as opposed to an infrastructure failure.
func IsBlockRejection(err error) bool {
	var tErr *Error
	if !As(err, &tErr) {
		return false
	}

	switch tErr.Code() {
	case ERR_BLOCK_INVALID,
		ERR_BLOCK_EXISTS,
		ERR_TX_INVALID,
		ERR_TX_INVALID_DOUBLE_SPEND,
		ERR_TX_ALREADY_EXISTS,
		ERR_TX_COINBASE_IMMATURE,
		ERR_TX_COINBASE_MISSING_BLOCK_HEIGHT,
		ERR_SPENT,
		ERR_UTXO_NOT_FOUND:
		return true
	default:
		return false
	}
}
