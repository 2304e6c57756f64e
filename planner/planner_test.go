package planner_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/access"
	"github.com/bobg/chainblob/codec"
	"github.com/bobg/chainblob/ledger/mem"
	"github.com/bobg/chainblob/planner"
	"github.com/bobg/chainblob/program"
	"github.com/bobg/chainblob/testutil"
)

func TestChoose(t *testing.T) {
	lim := planner.DefaultLimits()
	cases := []struct {
		chunks, recordSize int
		lim                planner.Limits
		want               planner.Strategy
	}{
		{chunks: 0, recordSize: 60, lim: lim, want: planner.Inline},
		{chunks: 0, recordSize: 60, lim: planner.Limits{InlineBudget: 10}, want: planner.Inline},
		{chunks: 1, recordSize: 850, lim: lim, want: planner.Inline},
		{chunks: 1, recordSize: 851, lim: lim, want: planner.LinkedList},
		{chunks: 2, lim: lim, want: planner.LinkedList},
		{chunks: 9, lim: lim, want: planner.LinkedList},
		{chunks: 10, lim: lim, want: planner.Session},
		{chunks: 500, lim: lim, want: planner.Session},
		{chunks: 3, lim: planner.Limits{SessionThreshold: 3}, want: planner.Session},
		{chunks: 1, recordSize: 100, lim: planner.Limits{InlineBudget: 50}, want: planner.LinkedList},
		{chunks: 1, recordSize: 100, lim: planner.Limits{}, want: planner.Inline},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			if got := planner.Choose(c.chunks, c.recordSize, c.lim); got != c.want {
				t.Errorf("got %s, want %s", got, c.want)
			}
		})
	}
}

// tierRecorder records the ReadOption of every read.
type tierRecorder struct {
	chainblob.Ledger

	mu    sync.Mutex
	tiers map[chainblob.Freshness]int
}

func (r *tierRecorder) note(opt chainblob.ReadOption) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers[opt.Tier()]++
}

func (r *tierRecorder) GetTransaction(ctx context.Context, sig chainblob.Signature, opt chainblob.ReadOption) (*chainblob.Transaction, error) {
	r.note(opt)
	return r.Ledger.GetTransaction(ctx, sig, opt)
}

func (r *tierRecorder) GetSignaturesForAddress(ctx context.Context, addr chainblob.Address, opts chainblob.SignaturesOptions, opt chainblob.ReadOption) ([]chainblob.SignatureInfo, error) {
	r.note(opt)
	return r.Ledger.GetSignaturesForAddress(ctx, addr, opts, opt)
}

func TestReadTier(t *testing.T) {
	var (
		ctx = context.Background()
		l   = mem.New("")
		rec = &tierRecorder{Ledger: l, tiers: make(map[chainblob.Freshness]int)}
		p   = testutil.Planner(rec, l.ProgramID(), testutil.Addr("writer"))
		now = time.Now()
	)
	p.Router.Now = func() time.Time { return now }

	cases := []struct {
		size int
		age  time.Duration
		want chainblob.Freshness
	}{
		{size: 3 * planner.DefaultChunkSize, age: 2 * time.Hour, want: chainblob.Fresh},
		{size: 3 * planner.DefaultChunkSize, age: 30 * 24 * time.Hour, want: chainblob.Recent},
		{size: 11 * planner.DefaultChunkSize, age: 2 * 24 * time.Hour, want: chainblob.Recent},
		{size: 11 * planner.DefaultChunkSize, age: 10 * 24 * time.Hour, want: chainblob.Archive},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			data := testutil.Payload(int64(i), c.size)
			receipt, err := p.Write(ctx, data, planner.WriteOptions{Sequence: uint64(i + 1)})
			if err != nil {
				t.Fatal(err)
			}

			rec.tiers = make(map[chainblob.Freshness]int)
			got, err := p.Read(ctx, planner.Reference{Path: receipt.Path, RecordedAt: now.Add(-c.age)})
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, data) {
				t.Fatal("payload mismatch")
			}
			if len(rec.tiers) != 1 || rec.tiers[c.want] == 0 {
				t.Errorf("got reads by tier %v, want all %s", rec.tiers, c.want)
			}
		})
	}
}

func TestEmptyPayloadTinyBudget(t *testing.T) {
	var (
		ctx = context.Background()
		l   = mem.New("")
		p   = testutil.Planner(l, l.ProgramID(), testutil.Addr("writer"))
	)
	p.Limits.InlineBudget = 10

	receipt, err := p.Put(ctx, nil, planner.WriteOptions{Name: "empty"})
	if err != nil {
		t.Fatal(err)
	}
	if receipt.Strategy != planner.Inline {
		t.Errorf("got strategy %s, want inline", receipt.Strategy)
	}
	got, err := p.Get(ctx, "", "empty", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d bytes, want none", len(got))
	}
}

func TestSequenceFromClock(t *testing.T) {
	var (
		ctx = context.Background()
		l   = mem.New("")
		p   = testutil.Planner(l, l.ProgramID(), testutil.Addr("writer"))
	)
	p.Limits.SessionThreshold = 2

	receipt1, err := p.Write(ctx, testutil.Payload(1, 2*planner.DefaultChunkSize), planner.WriteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	receipt2, err := p.Write(ctx, testutil.Payload(2, 2*planner.DefaultChunkSize), planner.WriteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if receipt1.Strategy != planner.Session || receipt2.Strategy != planner.Session {
		t.Fatalf("got strategies %s and %s, want session", receipt1.Strategy, receipt2.Strategy)
	}
	if receipt1.Path == receipt2.Path {
		t.Errorf("two sessions share the address %s", receipt1.Path)
	}
}

func TestDeniedChannelWriteSubmitsNothing(t *testing.T) {
	var (
		ctx   = context.Background()
		l     = mem.New("")
		alice = testutil.Planner(l, l.ProgramID(), testutil.Addr("alice"))
		bob   = testutil.Planner(l, l.ProgramID(), testutil.Addr("bob"))
		carol = testutil.Planner(l, l.ProgramID(), testutil.Addr("carol"))
	)

	conn, err := alice.RequestConnection(ctx, bob.Writer)
	if err != nil {
		t.Fatal(err)
	}

	for _, who := range []*planner.Planner{bob, carol} {
		before, err := l.GetSignaturesForAddress(ctx, who.Writer, chainblob.SignaturesOptions{}, chainblob.ReadOption{})
		if err != nil {
			t.Fatal(err)
		}
		d, _, err := who.WriteToChannel(ctx, conn, []byte("hello"), planner.WriteOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if d.Allowed {
			t.Fatalf("%s allowed to write", who.Writer)
		}
		after, err := l.GetSignaturesForAddress(ctx, who.Writer, chainblob.SignaturesOptions{}, chainblob.ReadOption{})
		if err != nil {
			t.Fatal(err)
		}
		if len(after) != len(before) {
			t.Errorf("denied write by %s submitted %d transactions", who.Writer, len(after)-len(before))
		}
	}

	d, _, err := carol.WriteToChannel(ctx, conn, []byte("hello"), planner.WriteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if d.Message != access.MsgNotParticipant {
		t.Errorf("got %q, want %q", d.Message, access.MsgNotParticipant)
	}
}

func TestChainEnforcesAccess(t *testing.T) {
	var (
		ctx   = context.Background()
		l     = mem.New("")
		alice = testutil.Planner(l, l.ProgramID(), testutil.Addr("alice"))
		bob   = testutil.Planner(l, l.ProgramID(), testutil.Addr("bob"))
	)

	conn, err := alice.RequestConnection(ctx, bob.Writer)
	if err != nil {
		t.Fatal(err)
	}

	// Bypassing the client-side check, the program itself refuses.
	ix, err := bob.Codec.Encode(codec.WriteRecord, map[string]chainblob.Address{"user": bob.Writer, "target": conn, "connection": conn}, codec.WriteRecordArgs{Record: []byte("{}")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.SendTransaction(ctx, bob.Writer, []chainblob.Instruction{ix}); !errors.Is(err, program.ErrRejected) {
		t.Errorf("got %v for a write to a pending connection by the non-requester, want ErrRejected", err)
	}

	if _, err := alice.ApproveConnection(ctx, bob.Writer); !errors.Is(err, program.ErrRejected) {
		t.Errorf("got %v for the requester approving its own request, want ErrRejected", err)
	}
	if _, err := bob.RequestConnection(ctx, alice.Writer); !errors.Is(err, program.ErrRejected) {
		t.Errorf("got %v for a duplicate connection request, want ErrRejected", err)
	}
	if _, err := bob.BlockConnection(ctx, alice.Writer); err != nil {
		t.Fatal(err)
	}
	if _, err := alice.ApproveConnection(ctx, bob.Writer); !errors.Is(err, program.ErrRejected) {
		t.Errorf("got %v for unblocking by the party that did not block, want ErrRejected", err)
	}
}
