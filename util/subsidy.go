package util

import (
	"github.com/bsv-blockchain/go-chaincfg"
)

// baseSubsidy is the starting subsidy amount for mined blocks, in satoshis.
const baseSubsidy = 50 * 1e8

// GetBlockSubsidyForHeight returns the subsidy a coinbase may claim at height. The subsidy halves
// every SubsidyReductionInterval blocks and reaches zero after 64 halvings. Missing or broken params
// yield 0 so a misconfigured node cannot create coins.
func GetBlockSubsidyForHeight(height uint32, params *chaincfg.Params) uint64 {
	if params == nil || params.SubsidyReductionInterval <= 0 {
		return 0
	}

	halvings := height / uint32(params.SubsidyReductionInterval)
	if halvings >= 64 {
		return 0
	}

	return uint64(baseSubsidy) >> halvings
}
