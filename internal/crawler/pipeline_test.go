package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ledgerScope/internal/chain"
	"ledgerScope/internal/model"
	"ledgerScope/internal/transport"
)

type recordingProducer struct {
	mu       sync.Mutex
	messages []transport.Message
	failOn   map[string]bool
}

func (p *recordingProducer) Publish(ctx context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var head struct {
		Hash string `json:"hash"`
	}
	_ = json.Unmarshal(payload, &head)
	if p.failOn[head.Hash] {
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, transport.Message{Topic: topic, Payload: append([]byte(nil), payload...)})
	return nil
}

func (p *recordingProducer) Close() error { return nil }

func (p *recordingProducer) hashes(topic string) map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int)
	for _, msg := range p.messages {
		if msg.Topic != topic {
			continue
		}
		var head struct {
			Hash string `json:"hash"`
		}
		if err := json.Unmarshal(msg.Payload, &head); err == nil {
			out[head.Hash]++
		}
	}
	return out
}

// threeBlockChain serves blocks 1..3; block 2 carries two transactions.
func threeBlockChain() *chain.Mock {
	m := chain.NewMock()
	m.SetHeight(3)
	m.AddBlock(1, model.BlockWire{Hash: "0xb1", Number: "0x1", Timestamp: "0x10", TransactionHashes: []string{"0xt1"}})
	m.AddBlock(2, model.BlockWire{Hash: "0xb2", Number: "0x2", Timestamp: "0x20", TransactionHashes: []string{"0xt2a", "0xt2b"}})
	m.AddBlock(3, model.BlockWire{Hash: "0xb3", Number: "0x3", Timestamp: "0x30", TransactionHashes: []string{"0xt3"}})
	for _, tx := range []model.TransactionWire{
		{Hash: "0xt1", BlockHash: "0xb1", BlockNumber: "0x1", Value: "0x1"},
		{Hash: "0xt2a", BlockHash: "0xb2", BlockNumber: "0x2", Value: "0x2"},
		{Hash: "0xt2b", BlockHash: "0xb2", BlockNumber: "0x2", Value: "0x3"},
		{Hash: "0xt3", BlockHash: "0xb3", BlockNumber: "0x3", Value: "0x4"},
	} {
		m.AddTransaction(tx)
	}
	return m
}

func newTestPipeline(cfg Config, provider chain.Provider, producer transport.Producer) *Pipeline {
	return NewPipeline(cfg, provider, NewPublisher(producer, transport.DefaultTopics(), nil), nil)
}

func txHashes(txs []model.TransactionWire) []string {
	out := make([]string, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.Hash)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPipelineFetchesAndPublishesEachOnce(t *testing.T) {
	provider := threeBlockChain()
	producer := &recordingProducer{}
	p := newTestPipeline(Config{FromBlock: 1, Window: 3}, provider, producer)

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if calls := provider.BlockCalls(); len(calls) != 3 {
		t.Fatalf("block fetches = %v, want 3", calls)
	}
	if calls := provider.TransactionCalls(); len(calls) != 4 {
		t.Fatalf("tx fetches = %v, want 4", calls)
	}

	blocks := producer.hashes(transport.TopicBlock)
	for _, hash := range []string{"0xb1", "0xb2", "0xb3"} {
		if blocks[hash] != 1 {
			t.Fatalf("block %s published %d times", hash, blocks[hash])
		}
	}
	txs := producer.hashes(transport.TopicTx)
	for _, hash := range []string{"0xt1", "0xt2a", "0xt2b", "0xt3"} {
		if txs[hash] != 1 {
			t.Fatalf("tx %s published %d times", hash, txs[hash])
		}
	}

	want := []string{"0xt1", "0xt2a", "0xt2b", "0xt3"}
	if got := txHashes(result.Transactions); !equalStrings(got, want) {
		t.Fatalf("transactions = %v, want %v", got, want)
	}
	if result.Blocks.Published != 3 || result.Txs.Published != 4 {
		t.Fatalf("stats = %+v / %+v", result.Blocks, result.Txs)
	}
	if result.Range.From != 1 || result.Range.To != 3 {
		t.Fatalf("range = %+v", result.Range)
	}
}

func TestPipelineKeepsIssuanceOrderUnderJitter(t *testing.T) {
	provider := threeBlockChain()
	var mu sync.Mutex
	calls := 0
	provider.OnCall(func() {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		// Earlier calls finish later.
		time.Sleep(time.Duration(10-n%10) * time.Millisecond)
	})

	result, err := newTestPipeline(Config{FromBlock: 1, Window: 4}, provider, &recordingProducer{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"0xt1", "0xt2a", "0xt2b", "0xt3"}
	if got := txHashes(result.Transactions); !equalStrings(got, want) {
		t.Fatalf("transactions = %v, want %v", got, want)
	}
}

func TestPipelineFilters(t *testing.T) {
	provider := threeBlockChain()
	producer := &recordingProducer{}
	cfg := Config{
		FromBlock: 1,
		Window:    2,
		Filter:    FilterOption{BlockHashSubstring: "b2", TxHashSubstring: "t2a"},
	}

	result, err := newTestPipeline(cfg, provider, producer).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	blocks := producer.hashes(transport.TopicBlock)
	if len(blocks) != 1 || blocks["0xb2"] != 1 {
		t.Fatalf("published blocks = %v, want only 0xb2", blocks)
	}
	txs := producer.hashes(transport.TopicTx)
	if len(txs) != 1 || txs["0xt2a"] != 1 {
		t.Fatalf("published txs = %v, want only 0xt2a", txs)
	}
	// Rejected blocks still feed their hashes to the transaction stage.
	if calls := provider.TransactionCalls(); len(calls) != 4 {
		t.Fatalf("tx fetches = %v, want 4", calls)
	}
	if result.Blocks.Filtered != 2 || result.Txs.Filtered != 3 {
		t.Fatalf("filtered = %d blocks, %d txs", result.Blocks.Filtered, result.Txs.Filtered)
	}
	if len(result.Transactions) != 4 {
		t.Fatalf("fetched transactions = %d, want 4", len(result.Transactions))
	}
}

func TestPipelineSkipsFailures(t *testing.T) {
	provider := threeBlockChain()
	provider.FailBlock(2, errors.New("upstream timeout"))
	provider.FailTransaction("0xt3", errors.New("upstream timeout"))
	producer := &recordingProducer{failOn: map[string]bool{"0xb1": true}}

	result, err := newTestPipeline(Config{FromBlock: 1, Window: 3}, provider, producer).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if calls := provider.TransactionCalls(); len(calls) != 2 {
		t.Fatalf("tx fetches = %v, want hashes of blocks 1 and 3 only", calls)
	}
	want := []string{"0xt1"}
	if got := txHashes(result.Transactions); !equalStrings(got, want) {
		t.Fatalf("transactions = %v, want %v", got, want)
	}
	if result.Blocks.Absent != 1 || result.Blocks.PublishFailed != 1 || result.Blocks.Published != 1 {
		t.Fatalf("block stats = %+v", result.Blocks)
	}
	if result.Txs.Absent != 1 || result.Txs.Published != 1 {
		t.Fatalf("tx stats = %+v", result.Txs)
	}
}

func TestPipelineMissingBlock(t *testing.T) {
	provider := threeBlockChain()
	provider.SetHeight(4)

	result, err := newTestPipeline(Config{FromBlock: 1, Window: 2}, provider, &recordingProducer{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Blocks.Absent != 1 || result.Blocks.Fetched != 3 {
		t.Fatalf("block stats = %+v", result.Blocks)
	}
}

func TestPipelineHeightFailure(t *testing.T) {
	provider := threeBlockChain()
	provider.FailHeight(errors.New("connection refused"))

	if _, err := newTestPipeline(Config{FromBlock: 1}, provider, &recordingProducer{}).Run(context.Background()); err == nil {
		t.Fatalf("expected height error")
	}
	if calls := provider.BlockCalls(); len(calls) != 0 {
		t.Fatalf("block fetches after height failure: %v", calls)
	}
}

func TestPipelineNothingToCrawl(t *testing.T) {
	provider := threeBlockChain()
	producer := &recordingProducer{}

	result, err := newTestPipeline(Config{FromBlock: 4}, provider, producer).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Transactions) != 0 || result.Transactions == nil {
		t.Fatalf("transactions = %v, want empty", result.Transactions)
	}
	if len(provider.BlockCalls()) != 0 || len(producer.messages) != 0 {
		t.Fatalf("unexpected activity for empty range")
	}
}

func TestPipelineSingleBlockRange(t *testing.T) {
	provider := threeBlockChain()
	result, err := newTestPipeline(Config{FromBlock: 3}, provider, &recordingProducer{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls := provider.BlockCalls(); len(calls) != 1 || calls[0] != 3 {
		t.Fatalf("block fetches = %v, want [3]", calls)
	}
	if got := txHashes(result.Transactions); !equalStrings(got, []string{"0xt3"}) {
		t.Fatalf("transactions = %v", got)
	}
}

func TestPipelineBoundsInFlight(t *testing.T) {
	const window = 2
	provider := chain.NewMock()
	provider.SetHeight(12)
	for n := uint64(1); n <= 12; n++ {
		hash := "0xtx" + string(rune('a'+n))
		provider.AddBlock(n, model.BlockWire{Hash: "0xblk" + string(rune('a'+n)), TransactionHashes: []string{hash}})
		provider.AddTransaction(model.TransactionWire{Hash: hash})
	}
	provider.OnCall(func() { time.Sleep(3 * time.Millisecond) })

	result, err := newTestPipeline(Config{FromBlock: 1, Window: window}, provider, &recordingProducer{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := provider.MaxBlockInFlight(); got > window {
		t.Fatalf("max block fetches in flight = %d, want <= %d", got, window)
	}
	if got := provider.MaxTransactionInFlight(); got > window {
		t.Fatalf("max transaction fetches in flight = %d, want <= %d", got, window)
	}
	if got := provider.MaxInFlight(); got > 2*window {
		t.Fatalf("max in flight = %d, want <= %d", got, 2*window)
	}
	if len(result.Transactions) != 12 {
		t.Fatalf("transactions = %d, want 12", len(result.Transactions))
	}
}

// gatedChain holds GetBlock(gate) until GetTransaction(trigger) has been
// called, so a crawl only finishes promptly when the transaction stage runs
// while the block stage is still fetching.
type gatedChain struct {
	*chain.Mock
	gate     uint64
	trigger  string
	seen     chan struct{}
	once     sync.Once
	mu       sync.Mutex
	timedOut bool
}

func (g *gatedChain) GetBlock(ctx context.Context, number uint64) (*model.BlockWire, error) {
	if number == g.gate {
		select {
		case <-g.seen:
		case <-time.After(2 * time.Second):
			g.mu.Lock()
			g.timedOut = true
			g.mu.Unlock()
		}
	}
	return g.Mock.GetBlock(ctx, number)
}

func (g *gatedChain) GetTransaction(ctx context.Context, hash string) (*model.TransactionWire, error) {
	if hash == g.trigger {
		g.once.Do(func() { close(g.seen) })
	}
	return g.Mock.GetTransaction(ctx, hash)
}

func TestPipelineOverlapsStages(t *testing.T) {
	provider := &gatedChain{Mock: threeBlockChain(), gate: 2, trigger: "0xt1", seen: make(chan struct{})}

	result, err := newTestPipeline(Config{FromBlock: 1, Window: 1}, provider, &recordingProducer{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	provider.mu.Lock()
	timedOut := provider.timedOut
	provider.mu.Unlock()
	if timedOut {
		t.Fatalf("block 2 fetch waited for the whole block stage before any transaction fetch")
	}
	if got := txHashes(result.Transactions); !equalStrings(got, []string{"0xt1", "0xt2a", "0xt2b", "0xt3"}) {
		t.Fatalf("transactions = %v", got)
	}
	if got := provider.MaxBlockInFlight(); got != 1 {
		t.Fatalf("max block fetches in flight = %d, want 1", got)
	}
	if got := provider.MaxTransactionInFlight(); got != 1 {
		t.Fatalf("max transaction fetches in flight = %d, want 1", got)
	}
}

func TestPipelineStopsOnCancel(t *testing.T) {
	provider := threeBlockChain()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestPipeline(Config{FromBlock: 1, Delay: time.Hour}, provider, &recordingProducer{}).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(provider.BlockCalls()) != 0 || len(result.Transactions) != 0 {
		t.Fatalf("cancelled crawl still fetched")
	}
}
