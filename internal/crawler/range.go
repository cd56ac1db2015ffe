package crawler

import "fmt"

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// NewBlockRange validates and builds an inclusive range.
func NewBlockRange(from, to uint64) (BlockRange, error) {
	if to < from {
		return BlockRange{}, fmt.Errorf("to block %d must be >= from block %d", to, from)
	}
	return BlockRange{From: from, To: to}, nil
}

// Len returns the number of blocks in the range.
func (r BlockRange) Len() uint64 {
	return r.To - r.From + 1
}

// Each calls fn for every block number in ascending order. It stops early
// when fn returns false.
func (r BlockRange) Each(fn func(number uint64) bool) {
	for n := r.From; ; n++ {
		if !fn(n) || n == r.To {
			return
		}
	}
}
