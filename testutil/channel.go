package testutil

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/access"
	"github.com/bobg/chainblob/planner"
)

// Channel walks a connection between two parties through its lifecycle,
// checking at each step who may write to the channel.
// The ledger must run the chainblob program at programID.
func Channel(ctx context.Context, t *testing.T, l chainblob.Ledger, programID chainblob.Address) {
	var (
		alice = Planner(l, programID, Addr("channel alice"))
		bob   = Planner(l, programID, Addr("channel bob"))
	)

	conn, err := alice.RequestConnection(ctx, bob.Writer)
	if err != nil {
		t.Fatal(err)
	}
	if c2, err := bob.ConnectionAddress(alice.Writer); err != nil {
		t.Fatal(err)
	} else if c2 != conn {
		t.Fatalf("connection address depends on party order: %s vs. %s", conn, c2)
	}

	type step struct {
		act     func() error
		who     *planner.Planner
		allowed bool
		msg     string
	}

	steps := []step{
		{who: alice, allowed: true},
		{who: bob, msg: access.MsgAllowInSettings},
		{act: func() error { _, err := bob.ApproveConnection(ctx, alice.Writer); return err }, who: bob, allowed: true},
		{who: alice, allowed: true},
		{act: func() error { _, err := alice.BlockConnection(ctx, bob.Writer); return err }, who: alice, msg: access.MsgYouMustAllow},
		{who: bob, msg: access.MsgAskToUnblock},
		{act: func() error { _, err := alice.ApproveConnection(ctx, bob.Writer); return err }, who: bob, allowed: true},
	}

	var written [][]byte
	for i, s := range steps {
		if s.act != nil {
			if err := s.act(); err != nil {
				t.Fatalf("step %d: %s", i+1, err)
			}
		}

		payload := []byte(fmt.Sprintf("message %d", i+1))
		d, receipt, err := s.who.WriteToChannel(ctx, conn, payload, planner.WriteOptions{})
		if err != nil {
			t.Fatalf("step %d: %s", i+1, err)
		}
		if d.Allowed != s.allowed {
			t.Fatalf("step %d: got allowed=%v (%s), want %v", i+1, d.Allowed, d.Message, s.allowed)
		}
		if !d.Allowed {
			if d.Message != s.msg {
				t.Errorf("step %d: got message %q, want %q", i+1, d.Message, s.msg)
			}
			if receipt != nil {
				t.Errorf("step %d: got a receipt for a denied write", i+1)
			}
			continue
		}
		written = append(written, payload)
	}

	entries, err := bob.Channel(ctx, conn)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(written) {
		t.Fatalf("got %d channel entries, want %d", len(entries), len(written))
	}
	for i, e := range entries {
		got, err := bob.Read(ctx, planner.ReferenceOf(e))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, written[i]) {
			t.Errorf("entry %d: got %q, want %q", i, got, written[i])
		}
	}
}
