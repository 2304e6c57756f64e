package testutil

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/planner"
)

// ReadWrite permits testing a Ledger implementation
// by storing payloads of every strategy on it,
// then reading them back out to make sure they're the same.
// The ledger must run the chainblob program at programID.
func ReadWrite(ctx context.Context, t *testing.T, l chainblob.Ledger, programID chainblob.Address) {
	p := Planner(l, programID, Addr("readwrite writer"))

	cases := []struct {
		size int
		want planner.Strategy
	}{
		{size: 0, want: planner.Inline},
		{size: 100, want: planner.Inline},
		{size: 3 * planner.DefaultChunkSize, want: planner.LinkedList},
		{size: 12*planner.DefaultChunkSize + 5, want: planner.Session},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			data := Payload(int64(i), c.size)
			name := fmt.Sprintf("payload-%d", i)

			t1 := time.Now()
			receipt, err := p.Put(ctx, data, planner.WriteOptions{Name: name, Sequence: uint64(i + 1)})
			if err != nil {
				t.Fatal(err)
			}
			t.Logf("wrote %d bytes as %s in %s", len(data), receipt.Strategy, time.Since(t1))
			if receipt.Strategy != c.want {
				t.Errorf("got strategy %s, want %s", receipt.Strategy, c.want)
			}
			if receipt.Record.TotalChunks != len(chainblob.Split(data, 0)) {
				t.Errorf("got total_chunks %d, want %d", receipt.Record.TotalChunks, len(chainblob.Split(data, 0)))
			}

			t2 := time.Now()
			got, err := p.Read(ctx, planner.Reference{Path: receipt.Path, Data: receipt.Record.Data})
			if err != nil {
				t.Fatal(err)
			}
			t.Logf("read %d bytes in %s", len(got), time.Since(t2))
			if !bytes.Equal(got, data) {
				t.Fatalf("got %d bytes, want %d (mismatch)", len(got), len(data))
			}

			got, err = p.Get(ctx, "", name, time.Now().Add(time.Hour))
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, data) {
				t.Fatalf("reading from root listing: got %d bytes, want %d (mismatch)", len(got), len(data))
			}
		})
	}
}
