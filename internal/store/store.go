// Package store holds the in-memory read model built from ingested events.
package store

import (
	"sync"

	"ledgerScope/internal/model"
)

// Store indexes blocks and transactions by hash. Writes take the exclusive
// lock; reads share it. Entries are never removed.
type Store struct {
	mu           sync.RWMutex
	blocks       map[string]model.Block
	transactions map[string]model.Transaction
}

func New() *Store {
	return &Store{
		blocks:       make(map[string]model.Block),
		transactions: make(map[string]model.Transaction),
	}
}

// UpsertBlock inserts or overwrites the block stored under block.Hash.
func (s *Store) UpsertBlock(block model.Block) {
	block = block.Clone()
	s.mu.Lock()
	s.blocks[block.Hash] = block
	s.mu.Unlock()
}

// UpsertTransaction inserts or overwrites the transaction stored under tx.Hash.
func (s *Store) UpsertTransaction(tx model.Transaction) {
	s.mu.Lock()
	s.transactions[tx.Hash] = tx
	s.mu.Unlock()
}

func (s *Store) Block(hash string) (model.Block, bool) {
	s.mu.RLock()
	block, ok := s.blocks[hash]
	s.mu.RUnlock()
	if !ok {
		return model.Block{}, false
	}
	return block.Clone(), true
}

func (s *Store) Transaction(hash string) (model.Transaction, bool) {
	s.mu.RLock()
	tx, ok := s.transactions[hash]
	s.mu.RUnlock()
	return tx, ok
}

// Blocks returns a snapshot of every stored block in unspecified order.
func (s *Store) Blocks() []model.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Block, 0, len(s.blocks))
	for _, block := range s.blocks {
		out = append(out, block.Clone())
	}
	return out
}

// Transactions returns a snapshot of every stored transaction in unspecified order.
func (s *Store) Transactions() []model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		out = append(out, tx)
	}
	return out
}

// Counts returns the number of stored blocks and transactions.
func (s *Store) Counts() (blocks, transactions int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks), len(s.transactions)
}
