// Package testutil holds conformance checks shared by the tests of Ledger implementations.
package testutil

import (
	"crypto/sha256"
	"math/rand"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/codec"
	"github.com/bobg/chainblob/planner"
	"github.com/bobg/chainblob/pool"
)

// Addr produces a well-formed address determined by s.
func Addr(s string) chainblob.Address {
	h := sha256.Sum256([]byte(s))
	return chainblob.AddressFromBytes(h[:])
}

// Payload produces n pseudorandom bytes determined by seed.
func Payload(seed int64, n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

// Planner produces an unthrottled Planner for writer on l,
// whose program runs at programID.
func Planner(l chainblob.Ledger, programID, writer chainblob.Address) *planner.Planner {
	p := planner.New(l, codec.New(programID), writer)
	p.Pool = &pool.Pool{Concurrency: 4}
	return p
}
