package crawler

import (
	"math"
	"reflect"
	"testing"
)

func TestBlockRangeEach(t *testing.T) {
	r, err := NewBlockRange(100, 103)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []uint64
	r.Each(func(n uint64) bool {
		got = append(got, n)
		return true
	})

	want := []uint64{100, 101, 102, 103}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("numbers mismatch: %v != %v", got, want)
	}
	if r.Len() != 4 {
		t.Fatalf("len = %d, want 4", r.Len())
	}
}

func TestBlockRangeSingle(t *testing.T) {
	r, err := NewBlockRange(5, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []uint64
	r.Each(func(n uint64) bool {
		got = append(got, n)
		return true
	})
	if !reflect.DeepEqual(got, []uint64{5}) {
		t.Fatalf("numbers mismatch: %v", got)
	}
}

func TestBlockRangeAtMaxUint64(t *testing.T) {
	r, _ := NewBlockRange(math.MaxUint64-1, math.MaxUint64)

	count := 0
	r.Each(func(uint64) bool {
		count++
		return count < 10
	})
	if count != 2 {
		t.Fatalf("visited %d numbers, want 2", count)
	}
}

func TestBlockRangeStopEarly(t *testing.T) {
	r, _ := NewBlockRange(1, 100)

	count := 0
	r.Each(func(uint64) bool {
		count++
		return count < 3
	})
	if count != 3 {
		t.Fatalf("visited %d numbers, want 3", count)
	}
}

func TestBlockRangeInvalid(t *testing.T) {
	if _, err := NewBlockRange(10, 9); err == nil {
		t.Fatalf("expected error for invalid range")
	}
}
