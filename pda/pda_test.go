package pda

import (
	"crypto/sha256"
	"testing"

	"github.com/bobg/chainblob"
)

func addr(s string) chainblob.Address {
	h := sha256.Sum256([]byte(s))
	return chainblob.AddressFromBytes(h[:])
}

func TestFindDeterministic(t *testing.T) {
	program := addr("program")

	a1, bump1, err := Find(program, []byte("seed"))
	if err != nil {
		t.Fatal(err)
	}
	a2, bump2, err := Find(program, []byte("seed"))
	if err != nil {
		t.Fatal(err)
	}
	if a1 != a2 || bump1 != bump2 {
		t.Errorf("got (%s, %d) then (%s, %d), want equal results", a1, bump1, a2, bump2)
	}
	if a1.Kind() != chainblob.PathAddress {
		t.Errorf("derived address %s classifies as %s", a1, a1.Kind())
	}

	b, err := a1.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if onCurve(b) {
		t.Error("derived address is on the curve")
	}

	other, _, err := Find(addr("other program"), []byte("seed"))
	if err != nil {
		t.Fatal(err)
	}
	if other == a1 {
		t.Error("different programs derived the same address")
	}
}

func TestCreateSeedLimits(t *testing.T) {
	program := addr("program")
	if _, err := Create(program, make([]byte, maxSeedLen+1)); err == nil {
		t.Error("got no error for an overlong seed, want one")
	}
	seeds := make([][]byte, maxSeeds+1)
	if _, err := Create(program, seeds...); err == nil {
		t.Error("got no error for too many seeds, want one")
	}
}

func TestSession(t *testing.T) {
	var (
		program = addr("program")
		writer  = addr("writer")
	)
	s1, err := Session(program, writer, 1)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := Session(program, writer, 2)
	if err != nil {
		t.Fatal(err)
	}
	if s1 == s2 {
		t.Error("sequences 1 and 2 derived the same session address")
	}
}

func TestConnectionSymmetric(t *testing.T) {
	var (
		program = addr("program")
		x       = addr("x")
		y       = addr("y")
	)
	c1, a1, b1, err := Connection(program, x, y)
	if err != nil {
		t.Fatal(err)
	}
	c2, a2, b2, err := Connection(program, y, x)
	if err != nil {
		t.Fatal(err)
	}
	if c1 != c2 || a1 != a2 || b1 != b2 {
		t.Errorf("argument order changed the result: (%s %s %s) vs. (%s %s %s)", c1, a1, b1, c2, a2, b2)
	}
	if a1 == b1 {
		t.Error("parties collapsed")
	}
}
