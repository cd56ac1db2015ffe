// Package query implements the read operations served by the API.
package query

import (
	"sort"

	"ledgerScope/internal/model"
	"ledgerScope/internal/store"
)

// Engine answers queries from the store. It never mutates state.
type Engine struct {
	store *store.Store
}

func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s}
}

// Block returns the block with the given hash.
func (e *Engine) Block(hash string) (model.Block, bool) {
	return e.store.Block(hash)
}

// BlocksByNumber returns every block at the given height, forks included,
// ordered by hash.
func (e *Engine) BlocksByNumber(number uint64) []model.Block {
	out := make([]model.Block, 0)
	for _, block := range e.store.Blocks() {
		if block.Number == number {
			out = append(out, block)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out
}

// LatestBlocks returns at most limit blocks, newest timestamp first. Equal
// timestamps are ordered by hash ascending.
func (e *Engine) LatestBlocks(limit int) []model.Block {
	if limit <= 0 {
		return []model.Block{}
	}

	blocks := e.store.Blocks()
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].Timestamp != blocks[j].Timestamp {
			return blocks[i].Timestamp > blocks[j].Timestamp
		}
		return blocks[i].Hash < blocks[j].Hash
	})
	if len(blocks) > limit {
		blocks = blocks[:limit]
	}
	return blocks
}

// Transaction returns the transaction with the given hash.
func (e *Engine) Transaction(hash string) (model.Transaction, bool) {
	return e.store.Transaction(hash)
}

// TransactionFilter selects transactions by block. Nil fields are ignored;
// an empty filter matches every transaction.
type TransactionFilter struct {
	BlockHash   *string
	BlockNumber *uint64
}

func (f TransactionFilter) matches(tx model.Transaction) bool {
	if f.BlockHash != nil && tx.BlockHash != *f.BlockHash {
		return false
	}
	if f.BlockNumber != nil && tx.BlockNumber != *f.BlockNumber {
		return false
	}
	return true
}

// TransactionsForBlock returns the transactions matching every set field of
// filter, ordered by block number and then hash.
func (e *Engine) TransactionsForBlock(filter TransactionFilter) []model.Transaction {
	out := make([]model.Transaction, 0)
	for _, tx := range e.store.Transactions() {
		if filter.matches(tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].Hash < out[j].Hash
	})
	return out
}

// Counts reports how many blocks and transactions are held.
func (e *Engine) Counts() (blocks, transactions int) {
	return e.store.Counts()
}
