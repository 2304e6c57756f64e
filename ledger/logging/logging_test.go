package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/ledger"
	"github.com/bobg/chainblob/ledger/mem"
	"github.com/bobg/chainblob/testutil"
)

func TestLedger(t *testing.T) {
	l := New(mem.New(""), zerolog.Nop())
	testutil.ReadWrite(context.Background(), t, l, ledger.DefaultProgramID)
}

func TestLogLines(t *testing.T) {
	var (
		ctx = context.Background()
		buf = new(bytes.Buffer)
		l   = New(mem.New(""), zerolog.New(buf).Level(zerolog.DebugLevel))
	)

	sig, err := l.SendTransaction(ctx, testutil.Addr("writer"), []chainblob.Instruction{{ProgramID: testutil.Addr("memo")}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.GetTransaction(ctx, sig, chainblob.ReadOption{Freshness: chainblob.Fresh}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.GetTransaction(ctx, "missing", chainblob.ReadOption{}); !errors.Is(err, chainblob.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}

	var lines []map[string]interface{}
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]interface{}
		if err := dec.Decode(&m); err != nil {
			t.Fatal(err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d log lines, want 3", len(lines))
	}

	cases := []struct {
		method, level, tier string
	}{
		{method: "SendTransaction", level: "debug"},
		{method: "GetTransaction", level: "debug", tier: "fresh"},
		{method: "GetTransaction", level: "error"},
	}
	for i, c := range cases {
		if lines[i]["method"] != c.method || lines[i]["level"] != c.level {
			t.Errorf("line %d: got %v", i, lines[i])
		}
		if tier, _ := lines[i]["tier"].(string); tier != c.tier {
			t.Errorf("line %d: got tier %q, want %q", i, tier, c.tier)
		}
	}
}
