package testutil

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/planner"
	"github.com/bobg/chainblob/record"
)

// Names checks that a Ledger's root listings resolve names to their latest payloads.
// The ledger must run the chainblob program at programID.
func Names(ctx context.Context, t *testing.T, l chainblob.Ledger, programID chainblob.Address) {
	p := Planner(l, programID, Addr("names writer"))

	for _, v := range []string{"v1", "v2"} {
		if _, err := p.Put(ctx, []byte(v), planner.WriteOptions{Name: "doc"}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := p.Put(ctx, []byte("other"), planner.WriteOptions{Name: "other"}); err != nil {
		t.Fatal(err)
	}

	entries, err := p.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	first := entries[0].RecordedAt

	cases := []struct {
		name    string
		at      time.Time
		want    string
		wantErr error
	}{
		{name: "doc", at: time.Now().Add(time.Hour), want: "v2"},
		{name: "other", at: time.Now().Add(time.Hour), want: "other"},
		{name: "doc", at: first.Add(-time.Minute), wantErr: chainblob.ErrNotFound},
		{name: "missing", at: time.Now().Add(time.Hour), wantErr: chainblob.ErrNotFound},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			got, err := p.Get(ctx, "", c.name, c.at)
			if c.wantErr != nil {
				if !errors.Is(err, c.wantErr) {
					t.Fatalf("got error %v, want %v", err, c.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != c.want {
				t.Fatalf("got %q, want %q", got, c.want)
			}
		})
	}

	if _, err := record.Latest(entries, "doc", first); err != nil {
		t.Errorf("latest as of the first record: %v", err)
	}
}
