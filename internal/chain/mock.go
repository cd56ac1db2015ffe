package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum"

	"ledgerScope/internal/model"
)

// Mock is a deterministic in-memory Provider. Blocks and transactions that
// were never added are reported as ethereum.NotFound; items registered with
// FailBlock/FailTransaction return an error instead.
type Mock struct {
	mu           sync.Mutex
	height       uint64
	heightErr    error
	blocks       map[uint64]model.BlockWire
	txs          map[string]model.TransactionWire
	blockErrs    map[uint64]error
	txErrs       map[string]error
	blockCalls   []uint64
	txCalls      []string
	inFlight     gauge
	blockFlight  gauge
	txFlight     gauge
	beforeReturn func()
}

// gauge tracks a concurrent call count and its high-water mark.
type gauge struct {
	cur, max int
}

func (g *gauge) inc() {
	g.cur++
	if g.cur > g.max {
		g.max = g.cur
	}
}

func (g *gauge) dec() { g.cur-- }

var _ Provider = (*Mock)(nil)

// NewMock returns an empty mock at height 0.
func NewMock() *Mock {
	return &Mock{
		blocks:    make(map[uint64]model.BlockWire),
		txs:       make(map[string]model.TransactionWire),
		blockErrs: make(map[uint64]error),
		txErrs:    make(map[string]error),
	}
}

// SetHeight sets the value reported by CurrentHeight.
func (m *Mock) SetHeight(height uint64) {
	m.mu.Lock()
	m.height = height
	m.mu.Unlock()
}

// FailHeight makes CurrentHeight return err.
func (m *Mock) FailHeight(err error) {
	m.mu.Lock()
	m.heightErr = err
	m.mu.Unlock()
}

// AddBlock registers a block under number.
func (m *Mock) AddBlock(number uint64, block model.BlockWire) {
	m.mu.Lock()
	m.blocks[number] = block
	m.mu.Unlock()
}

// AddTransaction registers a transaction under its hash.
func (m *Mock) AddTransaction(tx model.TransactionWire) {
	m.mu.Lock()
	m.txs[tx.Hash] = tx
	m.mu.Unlock()
}

// FailBlock makes GetBlock(number) return err.
func (m *Mock) FailBlock(number uint64, err error) {
	m.mu.Lock()
	m.blockErrs[number] = err
	m.mu.Unlock()
}

// FailTransaction makes GetTransaction(hash) return err.
func (m *Mock) FailTransaction(hash string, err error) {
	m.mu.Lock()
	m.txErrs[hash] = err
	m.mu.Unlock()
}

// OnCall installs a hook that runs inside every GetBlock/GetTransaction while
// the call is counted as in flight.
func (m *Mock) OnCall(fn func()) {
	m.mu.Lock()
	m.beforeReturn = fn
	m.mu.Unlock()
}

// BlockCalls returns the block numbers requested so far, in call order.
func (m *Mock) BlockCalls() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint64(nil), m.blockCalls...)
}

// TransactionCalls returns the transaction hashes requested so far, in call order.
func (m *Mock) TransactionCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.txCalls...)
}

// MaxInFlight returns the highest number of concurrent fetches observed,
// block and transaction calls combined.
func (m *Mock) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight.max
}

// MaxBlockInFlight returns the highest number of concurrent GetBlock calls.
func (m *Mock) MaxBlockInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blockFlight.max
}

// MaxTransactionInFlight returns the highest number of concurrent
// GetTransaction calls.
func (m *Mock) MaxTransactionInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txFlight.max
}

func (m *Mock) CurrentHeight(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.heightErr != nil {
		return 0, m.heightErr
	}
	return m.height, nil
}

func (m *Mock) GetBlock(ctx context.Context, number uint64) (*model.BlockWire, error) {
	m.enter(&m.blockFlight, func() { m.blockCalls = append(m.blockCalls, number) })
	defer m.leave(&m.blockFlight)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.blockErrs[number]; ok {
		return nil, fmt.Errorf("block %d: %w", number, err)
	}
	block, ok := m.blocks[number]
	if !ok {
		return nil, ethereum.NotFound
	}
	block.TransactionHashes = append([]string(nil), block.TransactionHashes...)
	return &block, nil
}

func (m *Mock) GetTransaction(ctx context.Context, hash string) (*model.TransactionWire, error) {
	m.enter(&m.txFlight, func() { m.txCalls = append(m.txCalls, hash) })
	defer m.leave(&m.txFlight)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.txErrs[hash]; ok {
		return nil, fmt.Errorf("transaction %s: %w", hash, err)
	}
	tx, ok := m.txs[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return &tx, nil
}

func (m *Mock) enter(kind *gauge, record func()) {
	m.mu.Lock()
	record()
	m.inFlight.inc()
	kind.inc()
	hook := m.beforeReturn
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (m *Mock) leave(kind *gauge) {
	m.mu.Lock()
	m.inFlight.dec()
	kind.dec()
	m.mu.Unlock()
}
