package lru

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/ledger"
	"github.com/bobg/chainblob/ledger/mem"
	"github.com/bobg/chainblob/testutil"
)

func TestLedger(t *testing.T) {
	l, err := New(mem.New(""), 1000)
	if err != nil {
		t.Fatal(err)
	}
	testutil.ReadWrite(context.Background(), t, l, ledger.DefaultProgramID)
}

func TestChannel(t *testing.T) {
	l, err := New(mem.New(""), 1000)
	if err != nil {
		t.Fatal(err)
	}
	testutil.Channel(context.Background(), t, l, ledger.DefaultProgramID)
}

type counting struct {
	chainblob.Ledger
	n int64
}

func (c *counting) GetTransaction(ctx context.Context, sig chainblob.Signature, opt chainblob.ReadOption) (*chainblob.Transaction, error) {
	atomic.AddInt64(&c.n, 1)
	return c.Ledger.GetTransaction(ctx, sig, opt)
}

func TestCaching(t *testing.T) {
	var (
		ctx    = context.Background()
		nested = &counting{Ledger: mem.New("")}
	)
	l, err := New(nested, 2)
	if err != nil {
		t.Fatal(err)
	}

	var sigs []chainblob.Signature
	for _, data := range []string{"a", "b", "c"} {
		sig, err := l.SendTransaction(ctx, testutil.Addr("writer"), []chainblob.Instruction{{ProgramID: testutil.Addr("memo"), Data: []byte(data)}})
		if err != nil {
			t.Fatal(err)
		}
		sigs = append(sigs, sig)
	}

	get := func(sig chainblob.Signature) {
		if _, err := l.GetTransaction(ctx, sig, chainblob.ReadOption{}); err != nil {
			t.Fatal(err)
		}
	}

	get(sigs[0])
	get(sigs[0])
	if nested.n != 1 {
		t.Errorf("got %d nested fetches after a repeat, want 1", nested.n)
	}

	get(sigs[1])
	get(sigs[2]) // evicts sigs[0]
	get(sigs[0])
	if nested.n != 4 {
		t.Errorf("got %d nested fetches after eviction, want 4", nested.n)
	}

	for i := 0; i < 2; i++ {
		if _, err := l.GetTransaction(ctx, "missing", chainblob.ReadOption{}); !errors.Is(err, chainblob.ErrNotFound) {
			t.Fatalf("got %v, want ErrNotFound", err)
		}
	}
	if nested.n != 6 {
		t.Errorf("misses were cached: got %d nested fetches, want 6", nested.n)
	}
}

func TestRegistry(t *testing.T) {
	l, err := ledger.Create(context.Background(), "lru", map[string]interface{}{
		"size":   10,
		"nested": map[string]interface{}{"type": "mem"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := l.(*Ledger); !ok {
		t.Fatalf("got %T, want *Ledger", l)
	}
}
