package chain

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"

	"ledgerScope/internal/model"
)

func TestMockProvider(t *testing.T) {
	m := NewMock()
	m.SetHeight(3)
	m.AddBlock(1, model.BlockWire{Hash: "0xb1", TransactionHashes: []string{"0xt1"}})
	m.AddTransaction(model.TransactionWire{Hash: "0xt1"})
	m.FailTransaction("0xbad", errRetry)

	ctx := context.Background()
	if h, _ := m.CurrentHeight(ctx); h != 3 {
		t.Fatalf("height = %d, want 3", h)
	}
	block, err := m.GetBlock(ctx, 1)
	if err != nil || block.Hash != "0xb1" {
		t.Fatalf("GetBlock = %+v, %v", block, err)
	}
	block.TransactionHashes[0] = "mutated"
	again, _ := m.GetBlock(ctx, 1)
	if again.TransactionHashes[0] != "0xt1" {
		t.Fatalf("mock leaked internal slice")
	}
	if _, err := m.GetBlock(ctx, 2); !errors.Is(err, ethereum.NotFound) {
		t.Fatalf("missing block err = %v", err)
	}
	if _, err := m.GetTransaction(ctx, "0xbad"); !errors.Is(err, errRetry) {
		t.Fatalf("failing tx err = %v", err)
	}
	if got := m.BlockCalls(); len(got) != 3 {
		t.Fatalf("block calls = %v", got)
	}
}

func TestMockTracksInFlightPerMethod(t *testing.T) {
	m := NewMock()
	m.AddBlock(1, model.BlockWire{Hash: "0xb1"})
	m.AddTransaction(model.TransactionWire{Hash: "0xt1"})

	// Hold every call until two blocks and one transaction are in flight.
	var arrived sync.WaitGroup
	arrived.Add(3)
	release := make(chan struct{})
	m.OnCall(func() {
		arrived.Done()
		<-release
	})

	ctx := context.Background()
	var done sync.WaitGroup
	for i := 0; i < 2; i++ {
		done.Add(1)
		go func() {
			defer done.Done()
			_, _ = m.GetBlock(ctx, 1)
		}()
	}
	done.Add(1)
	go func() {
		defer done.Done()
		_, _ = m.GetTransaction(ctx, "0xt1")
	}()
	arrived.Wait()
	close(release)
	done.Wait()

	if got := m.MaxBlockInFlight(); got != 2 {
		t.Fatalf("max block in flight = %d, want 2", got)
	}
	if got := m.MaxTransactionInFlight(); got != 1 {
		t.Fatalf("max transaction in flight = %d, want 1", got)
	}
	if got := m.MaxInFlight(); got != 3 {
		t.Fatalf("max in flight = %d, want 3", got)
	}
}
