package chainblob_test

import (
	"context"
	"errors"
	"testing"
	"testing/quick"

	. "github.com/bobg/chainblob"
	"github.com/bobg/chainblob/ledger/mem"
	"github.com/bobg/chainblob/pool"
	"github.com/bobg/chainblob/testutil"
)

func TestMulti(t *testing.T) {
	var (
		ctx    = context.Background()
		l      = mem.New("")
		memo   = testutil.Addr("memo")
		writer = testutil.Addr("writer")
		p      = &pool.Pool{Concurrency: 3}
	)

	err := quick.Check(func(yes [][]byte, no []uint64) bool {
		sigs := make([]Signature, 0, len(yes))
		for _, data := range yes {
			sig, err := l.SendTransaction(ctx, writer, []Instruction{{ProgramID: memo, Data: data}})
			if err != nil {
				t.Log(err)
				return false
			}
			sigs = append(sigs, sig)
		}

		got, err := GetMulti(ctx, l, sigs, ReadOption{}, p)
		if err != nil {
			t.Log(err)
			return false
		}
		if len(got) != len(sigs) {
			t.Logf("got %d transactions, want %d", len(got), len(sigs))
			return false
		}
		for _, sig := range sigs {
			if tx, ok := got[sig]; !ok || tx.Signature != sig {
				t.Logf("signature %s missing after GetMulti", sig)
				return false
			}
		}

		noSigs := make(map[Signature]struct{})
		for _, n := range no {
			sig := SignatureFromBytes([]byte{byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)})
			noSigs[sig] = struct{}{}
		}
		if len(noSigs) == 0 {
			return true
		}

		all := append([]Signature{}, sigs...)
		for sig := range noSigs {
			all = append(all, sig)
		}

		got, err = GetMulti(ctx, l, all, ReadOption{}, p)
		if err == nil {
			t.Log("got no error from second GetMulti, want MultiErr")
			return false
		}
		merr, ok := err.(MultiErr)
		if !ok {
			t.Logf("got %T error from second GetMulti, want MultiErr", err)
			return false
		}
		if !errors.Is(err, ErrNotFound) {
			t.Logf("got %s, want every error to be %s", err, ErrNotFound)
			return false
		}
		if len(merr) != len(noSigs) {
			t.Logf("got %d errors, want %d", len(merr), len(noSigs))
			return false
		}
		for sig := range noSigs {
			if _, ok := merr[sig]; !ok {
				t.Logf("signature %s missing from MultiErr after second GetMulti", sig)
				return false
			}
		}
		for _, sig := range sigs {
			if _, ok := got[sig]; !ok {
				t.Logf("signature %s missing after second GetMulti", sig)
				return false
			}
		}
		return true
	}, nil)
	if err != nil {
		t.Error(err)
	}
}

func TestSplit(t *testing.T) {
	if got := Split(nil, 10); len(got) != 0 {
		t.Errorf("got %d chunks for an empty payload", len(got))
	}

	err := quick.Check(func(payload []byte, max uint8) bool {
		n := int(max%32) + 1
		chunks := Split(payload, n)
		for i, c := range chunks {
			if len(c) > n || len(c) == 0 {
				t.Logf("chunk %d has length %d, max %d", i, len(c), n)
				return false
			}
			if i < len(chunks)-1 && len(c) != n {
				t.Logf("non-final chunk %d has length %d, want %d", i, len(c), n)
				return false
			}
		}
		return string(Join(chunks)) == string(payload)
	}, nil)
	if err != nil {
		t.Error(err)
	}
}

func TestPathKind(t *testing.T) {
	cases := []struct {
		path Path
		want PathKind
	}{
		{path: "", want: PathInline},
		{path: Path(testutil.Addr("x")), want: PathAddress},
		{path: Path(make([]byte, SignatureMinLen-1)), want: PathAddress},
		{path: Path(make([]byte, SignatureMinLen)), want: PathSignature},
		{path: Path(SignatureFromBytes(make([]byte, 64))), want: PathAddress},
		{path: Path(SignatureFromBytes(append([]byte{1}, make([]byte, 63)...))), want: PathSignature},
	}
	for _, c := range cases {
		if got := c.path.Kind(); got != c.want {
			t.Errorf("%q: got %s, want %s", c.path, got, c.want)
		}
	}
}
