package crawler

import (
	"strings"

	"ledgerScope/internal/model"
)

// FilterOption holds the optional hash-substring filters applied before
// publishing. An empty string disables the corresponding filter.
type FilterOption struct {
	TxHashSubstring    string
	BlockHashSubstring string
}

// Accepts reports whether hash passes substring. Matching is exact and
// case-sensitive.
func Accepts(hash, substring string) bool {
	if substring == "" {
		return true
	}
	return strings.Contains(hash, substring)
}

// AcceptsBlock applies the block hash filter.
func (f FilterOption) AcceptsBlock(block *model.BlockWire) bool {
	return Accepts(block.Hash, f.BlockHashSubstring)
}

// AcceptsTransaction applies the transaction hash filter.
func (f FilterOption) AcceptsTransaction(tx *model.TransactionWire) bool {
	return Accepts(tx.Hash, f.TxHashSubstring)
}
