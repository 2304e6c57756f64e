// Package pda derives program addresses:
// account addresses computed from a program ID and a list of seeds
// that lie off the ed25519 curve, so that no private key can sign for them.
package pda

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	"filippo.io/edwards25519"
	"github.com/pkg/errors"

	"github.com/bobg/chainblob"
)

const (
	maxSeeds   = 16
	maxSeedLen = 32
	marker     = "ProgramDerivedAddress"
)

// ErrNoAddress means no bump seed produced an off-curve address.
var ErrNoAddress = errors.New("no valid program address for seeds")

// Create computes the program address for the given seeds,
// failing if the result lies on the curve.
func Create(program chainblob.Address, seeds ...[]byte) (chainblob.Address, error) {
	if len(seeds) > maxSeeds {
		return "", errors.Errorf("%d seeds, max is %d", len(seeds), maxSeeds)
	}
	programBytes, err := program.Bytes()
	if err != nil {
		return "", err
	}

	h := sha256.New()
	for i, s := range seeds {
		if len(s) > maxSeedLen {
			return "", errors.Errorf("seed %d is %d bytes, max is %d", i, len(s), maxSeedLen)
		}
		h.Write(s)
	}
	h.Write(programBytes)
	h.Write([]byte(marker))
	sum := h.Sum(nil)

	if onCurve(sum) {
		return "", errors.New("derived address is on the curve")
	}
	return chainblob.AddressFromBytes(sum), nil
}

// Find searches bump seeds from 255 down
// for the first one whose program address lies off the curve.
func Find(program chainblob.Address, seeds ...[]byte) (chainblob.Address, uint8, error) {
	withBump := append(append([][]byte{}, seeds...), nil)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := Create(program, withBump...)
		if err == nil {
			return addr, uint8(bump), nil
		}
	}
	return "", 0, ErrNoAddress
}

func onCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// Session is the address of the session account for writer's sequence'th session.
func Session(program, writer chainblob.Address, sequence uint64) (chainblob.Address, error) {
	w, err := writer.Bytes()
	if err != nil {
		return "", err
	}
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], sequence)
	addr, _, err := Find(program, []byte("session"), w, seq[:])
	return addr, errors.Wrapf(err, "deriving session address for %s/%d", writer, sequence)
}

// Connection is the address of the connection account between two parties.
// The parties are ordered by their byte encoding,
// so the result does not depend on argument order;
// the ordered pair is returned as (partyA, partyB).
func Connection(program, x, y chainblob.Address) (addr, partyA, partyB chainblob.Address, err error) {
	xb, err := x.Bytes()
	if err != nil {
		return "", "", "", err
	}
	yb, err := y.Bytes()
	if err != nil {
		return "", "", "", err
	}
	if bytes.Compare(xb, yb) > 0 {
		x, y = y, x
		xb, yb = yb, xb
	}
	addr, _, err = Find(program, []byte("connection"), xb, yb)
	return addr, x, y, errors.Wrapf(err, "deriving connection address for %s/%s", x, y)
}

// Root is the address of the account whose history lists user's metadata records.
func Root(program, user chainblob.Address) (chainblob.Address, error) {
	u, err := user.Bytes()
	if err != nil {
		return "", err
	}
	addr, _, err := Find(program, []byte("root"), u)
	return addr, errors.Wrapf(err, "deriving root address for %s", user)
}
