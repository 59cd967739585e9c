package model

import (
	"fmt"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// Outpoint references a single transaction output. It is a comparable value type.
type Outpoint struct {
	TxID  chainhash.Hash
	Index uint32
}

func NewOutpoint(txid *chainhash.Hash, index uint32) Outpoint {
	return Outpoint{TxID: *txid, Index: index}
}

func (o Outpoint) IsNull() bool {
	return o.TxID == chainhash.Hash{} && o.Index == 0
}

func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID.String(), o.Index)
}
