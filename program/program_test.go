package program

import (
	"context"
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/access"
	"github.com/bobg/chainblob/codec"
	"github.com/bobg/chainblob/pda"
)

type state map[chainblob.Address]*chainblob.Account

func (s state) GetAccount(_ context.Context, addr chainblob.Address) (*chainblob.Account, error) {
	if acct, ok := s[addr]; ok {
		return acct, nil
	}
	return nil, chainblob.ErrNotFound
}

func (s state) apply(writes []*chainblob.Account) {
	for _, w := range writes {
		s[w.Address] = w
	}
}

func addr(s string) chainblob.Address {
	h := sha256.Sum256([]byte(s))
	return chainblob.AddressFromBytes(h[:])
}

func TestCreateSession(t *testing.T) {
	var (
		ctx    = context.Background()
		c      = codec.New(addr("program"))
		p      = New(c)
		st     = make(state)
		writer = addr("writer")
	)

	sess, err := pda.Session(p.ID(), writer, 3)
	if err != nil {
		t.Fatal(err)
	}

	bad, err := c.Encode(codec.CreateSession, map[string]chainblob.Address{"user": writer, "session": addr("elsewhere")}, codec.CreateSessionArgs{Sequence: 3, TotalChunks: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Execute(ctx, st, writer, []chainblob.Instruction{bad}); !errors.Is(err, ErrRejected) {
		t.Errorf("got %v for an underived session address, want ErrRejected", err)
	}

	good, err := c.Encode(codec.CreateSession, map[string]chainblob.Address{"user": writer, "session": sess}, codec.CreateSessionArgs{Sequence: 3, TotalChunks: 4})
	if err != nil {
		t.Fatal(err)
	}

	// A failing instruction later in the transaction discards the session.
	if writes, err := p.Execute(ctx, st, writer, []chainblob.Instruction{good, bad}); err == nil || writes != nil {
		t.Fatalf("got (%v, %v), want a failure with no writes", writes, err)
	}

	writes, err := p.Execute(ctx, st, writer, []chainblob.Instruction{{ProgramID: addr("memo")}, good})
	if err != nil {
		t.Fatal(err)
	}
	if len(writes) != 1 || writes[0].Address != sess || writes[0].Owner != p.ID() {
		t.Fatalf("got writes %v", writes)
	}
	st.apply(writes)

	var rec codec.SessionRecord
	if err := c.DecodeState(st[sess].Data, codec.SessionState, &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Writer != writer || rec.TotalChunks != 4 {
		t.Errorf("got %+v", rec)
	}

	if _, err := p.Execute(ctx, st, writer, []chainblob.Instruction{good}); !errors.Is(err, ErrRejected) {
		t.Errorf("got %v recreating a session, want ErrRejected", err)
	}

	post, err := c.Encode(codec.PostChunk, map[string]chainblob.Address{"user": addr("intruder"), "session": sess}, codec.PostChunkArgs{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Execute(ctx, st, addr("intruder"), []chainblob.Instruction{post}); !errors.Is(err, ErrRejected) {
		t.Errorf("got %v for a chunk from another writer, want ErrRejected", err)
	}
}

func TestConnectionLifecycle(t *testing.T) {
	var (
		ctx = context.Background()
		c   = codec.New(addr("program"))
		p   = New(c)
		st  = make(state)
		x   = addr("x")
		y   = addr("y")
	)

	conn, partyA, _, err := pda.Connection(p.ID(), x, y)
	if err != nil {
		t.Fatal(err)
	}

	run := func(name string, signer chainblob.Address, accounts map[string]chainblob.Address) error {
		ix, err := c.Encode(name, accounts, codec.NoArgs{})
		if err != nil {
			t.Fatal(err)
		}
		writes, err := p.Execute(ctx, st, signer, []chainblob.Instruction{ix})
		if err != nil {
			return err
		}
		st.apply(writes)
		return nil
	}
	meta := func() access.ConnectionMeta {
		var m access.ConnectionMeta
		if err := c.DecodeState(st[conn].Data, codec.ConnectionState, &m); err != nil {
			t.Fatal(err)
		}
		return m
	}

	if err := run(codec.RequestConnection, y, map[string]chainblob.Address{"user": x, "peer": y, "connection": conn}); !errors.Is(err, ErrRejected) {
		t.Errorf("got %v for an unsigned request, want ErrRejected", err)
	}
	if err := run(codec.RequestConnection, x, map[string]chainblob.Address{"user": x, "peer": x, "connection": conn}); !errors.Is(err, ErrRejected) {
		t.Errorf("got %v for a request to self, want ErrRejected", err)
	}
	if err := run(codec.RequestConnection, y, map[string]chainblob.Address{"user": y, "peer": x, "connection": conn}); err != nil {
		t.Fatal(err)
	}
	m := meta()
	if m.Status != access.Pending || m.PartyA != partyA || m.Requester != m.RoleOf(y) {
		t.Errorf("after request got %+v", m)
	}

	if err := run(codec.ApproveConnection, addr("z"), map[string]chainblob.Address{"user": addr("z"), "connection": conn}); !errors.Is(err, ErrRejected) {
		t.Errorf("got %v for approval by an outsider, want ErrRejected", err)
	}
	if err := run(codec.ApproveConnection, x, map[string]chainblob.Address{"user": x, "connection": conn}); err != nil {
		t.Fatal(err)
	}
	if m := meta(); m.Status != access.Approved {
		t.Errorf("after approval got %+v", m)
	}
	if err := run(codec.ApproveConnection, x, map[string]chainblob.Address{"user": x, "connection": conn}); !errors.Is(err, ErrRejected) {
		t.Errorf("got %v approving twice, want ErrRejected", err)
	}

	if err := run(codec.BlockConnection, y, map[string]chainblob.Address{"user": y, "connection": conn}); err != nil {
		t.Fatal(err)
	}
	if m := meta(); m.Status != access.Blocked || m.Blocker != m.RoleOf(y) {
		t.Errorf("after block got %+v", m)
	}
	if err := run(codec.ApproveConnection, y, map[string]chainblob.Address{"user": y, "connection": conn}); err != nil {
		t.Fatal(err)
	}
	if m := meta(); m.Status != access.Approved || m.Blocker != access.RoleNone {
		t.Errorf("after unblock got %+v", m)
	}
}
