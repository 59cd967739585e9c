package errors

// ERR is the numeric code carried by every *Error.
type ERR int32

const (
	ERR_UNKNOWN            ERR = 0
	ERR_INVALID_ARGUMENT   ERR = 1
	ERR_THRESHOLD_EXCEEDED ERR = 2
	ERR_NOT_FOUND          ERR = 3
	ERR_PROCESSING         ERR = 4
	ERR_CONFIGURATION      ERR = 5
	ERR_CONTEXT            ERR = 6
	ERR_CONTEXT_CANCELED   ERR = 7
	ERR_ERROR              ERR = 9

	// block errors
	ERR_BLOCK_NOT_FOUND ERR = 10
	ERR_BLOCK_INVALID   ERR = 11
	ERR_BLOCK_EXISTS    ERR = 12
	ERR_BLOCK_ERROR     ERR = 13

	// transaction errors
	ERR_TX_NOT_FOUND                     ERR = 30
	ERR_TX_INVALID                       ERR = 31
	ERR_TX_INVALID_DOUBLE_SPEND          ERR = 32
	ERR_TX_ALREADY_EXISTS                ERR = 33
	ERR_TX_COINBASE_IMMATURE             ERR = 34
	ERR_TX_ERROR                         ERR = 39
	ERR_TX_COINBASE_MISSING_BLOCK_HEIGHT ERR = 40

	// service errors
	ERR_SERVICE_UNAVAILABLE  ERR = 50
	ERR_SERVICE_NOT_STARTED  ERR = 51
	ERR_SERVICE_ERROR        ERR = 52
	ERR_STORAGE_UNAVAILABLE  ERR = 60
	ERR_STORAGE_NOT_STARTED  ERR = 61
	ERR_STORAGE_ERROR        ERR = 62
	ERR_SPENT                ERR = 70
	ERR_UTXO_NOT_FOUND       ERR = 71
	ERR_UTXO_ALREADY_EXISTS  ERR = 72
	ERR_STATE_INITIALIZATION ERR = 80
	ERR_STATE_ERROR          ERR = 81

	// harness invariant violations, a run that hits one of these has found a defect
	ERR_SUPPLY_MISMATCH           ERR = 100
	ERR_HEIGHT_DELTA              ERR = 101
	ERR_DUPLICATE_ACCEPTED        ERR = 102
	ERR_EMPTY_LEDGER              ERR = 103
	ERR_NONCE_EXHAUSTED           ERR = 104
	ERR_STATS_CHANGED             ERR = 105
	ERR_DUPLICATE_COINBASE_MISSED ERR = 106
	ERR_UNEXPECTED_CHAIN_HEIGHT   ERR = 107
)

var ERR_name = map[int32]string{
	0:   "UNKNOWN",
	1:   "INVALID_ARGUMENT",
	2:   "THRESHOLD_EXCEEDED",
	3:   "NOT_FOUND",
	4:   "PROCESSING",
	5:   "CONFIGURATION",
	6:   "CONTEXT",
	7:   "CONTEXT_CANCELED",
	9:   "ERROR",
	10:  "BLOCK_NOT_FOUND",
	11:  "BLOCK_INVALID",
	12:  "BLOCK_EXISTS",
	13:  "BLOCK_ERROR",
	30:  "TX_NOT_FOUND",
	31:  "TX_INVALID",
	32:  "TX_INVALID_DOUBLE_SPEND",
	33:  "TX_ALREADY_EXISTS",
	34:  "TX_COINBASE_IMMATURE",
	39:  "TX_ERROR",
	40:  "TX_COINBASE_MISSING_BLOCK_HEIGHT",
	50:  "SERVICE_UNAVAILABLE",
	51:  "SERVICE_NOT_STARTED",
	52:  "SERVICE_ERROR",
	60:  "STORAGE_UNAVAILABLE",
	61:  "STORAGE_NOT_STARTED",
	62:  "STORAGE_ERROR",
	70:  "SPENT",
	71:  "UTXO_NOT_FOUND",
	72:  "UTXO_ALREADY_EXISTS",
	80:  "STATE_INITIALIZATION",
	81:  "STATE_ERROR",
	100: "SUPPLY_MISMATCH",
	101: "HEIGHT_DELTA",
	102: "DUPLICATE_ACCEPTED",
	103: "EMPTY_LEDGER",
	104: "NONCE_EXHAUSTED",
	105: "STATS_CHANGED",
	106: "DUPLICATE_COINBASE_MISSED",
	107: "UNEXPECTED_CHAIN_HEIGHT",
}

func (x ERR) String() string {
	if name, ok := ERR_name[int32(x)]; ok {
		return name
	}

	return "UNKNOWN"
}
