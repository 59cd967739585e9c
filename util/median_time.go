package util

import (
	"sort"

	"github.com/bsv-blockchain/supplyfuzz/errors"
)

// MedianTimeBlocks is the number of previous blocks used to calculate the median time past.
const MedianTimeBlocks = 11

// CalcPastMedianTime returns the median of up to MedianTimeBlocks timestamps. The slice is sorted
// in place.
//
// For an even number of timestamps the upper middle element is returned, which is what the
// consensus rules do for the first blocks of a chain.
func CalcPastMedianTime(timestamps []int64) (int64, error) {
	if len(timestamps) == 0 {
		return 0, errors.NewProcessingError("no timestamps for median time calculation")
	}

	if len(timestamps) > MedianTimeBlocks {
		return 0, errors.NewProcessingError("too many timestamps for median time calculation: %d", len(timestamps))
	}

	sort.Slice(timestamps, func(i, j int) bool {
		return timestamps[i] < timestamps[j]
	})

	return timestamps[len(timestamps)/2], nil
}
