// Package ledger holds what every Ledger implementation shares:
// the backend registry,
// and Devnet, the core of the development ledgers.
package ledger

import (
	"context"
	"crypto/sha512"
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/codec"
	"github.com/bobg/chainblob/program"
)

// DefaultProgramID is the address development ledgers run the program at
// when the configuration names none.
const DefaultProgramID chainblob.Address = "CHB1obStoreProgram1111111111111111111111111"

// MaxSignaturesLimit caps the page size of GetSignaturesForAddress,
// as real nodes do.
const MaxSignaturesLimit = 1000

// Backend is the persistence layer under a Devnet.
type Backend interface {
	// GetAccount returns chainblob.ErrNotFound for a missing account.
	GetAccount(context.Context, chainblob.Address) (*chainblob.Account, error)

	// GetTransaction returns chainblob.ErrNotFound for an unknown signature.
	GetTransaction(context.Context, chainblob.Signature) (*chainblob.Transaction, error)

	// Signatures returns up to limit signatures of transactions that touched addr,
	// newest first, restricted to slots below beforeSlot.
	// A beforeSlot of zero means no restriction.
	Signatures(ctx context.Context, addr chainblob.Address, beforeSlot uint64, limit int) ([]chainblob.SignatureInfo, error)

	// LastSlot is the highest slot committed so far, or zero.
	LastSlot(context.Context) (uint64, error)

	// Commit atomically stores tx, indexes it under each of addrs,
	// and stores accounts.
	Commit(ctx context.Context, tx *chainblob.Transaction, addrs []chainblob.Address, accounts []*chainblob.Account) error
}

// Devnet is a chainblob.Ledger that executes the chainblob program locally
// and commits the results to a Backend.
// Every transaction gets its own slot.
type Devnet struct {
	// Now is the clock for block times.
	// If nil, time.Now is used.
	Now func() time.Time

	b    Backend
	prog *program.Program

	mu     sync.Mutex // serializes SendTransaction
	slot   uint64
	loaded bool
}

var _ chainblob.Ledger = &Devnet{}

// NewDevnet produces a Devnet over b running the program at programID.
func NewDevnet(b Backend, programID chainblob.Address) *Devnet {
	if programID == "" {
		programID = DefaultProgramID
	}
	return &Devnet{
		b:    b,
		prog: program.New(codec.New(programID)),
	}
}

// ProgramID is the address of the program the Devnet runs.
func (d *Devnet) ProgramID() chainblob.Address {
	return d.prog.ID()
}

// GetAccountInfo implements chainblob.Getter.GetAccountInfo.
// Devnet has one tier, so the ReadOption is ignored.
func (d *Devnet) GetAccountInfo(ctx context.Context, addr chainblob.Address, _ chainblob.ReadOption) (*chainblob.Account, error) {
	return d.b.GetAccount(ctx, addr)
}

// GetTransaction implements chainblob.Getter.GetTransaction.
func (d *Devnet) GetTransaction(ctx context.Context, sig chainblob.Signature, _ chainblob.ReadOption) (*chainblob.Transaction, error) {
	return d.b.GetTransaction(ctx, sig)
}

// GetSignaturesForAddress implements chainblob.Getter.GetSignaturesForAddress.
func (d *Devnet) GetSignaturesForAddress(ctx context.Context, addr chainblob.Address, opts chainblob.SignaturesOptions, _ chainblob.ReadOption) ([]chainblob.SignatureInfo, error) {
	limit := opts.Limit
	if limit <= 0 || limit > MaxSignaturesLimit {
		limit = MaxSignaturesLimit
	}

	var before uint64
	if opts.Before != "" {
		tx, err := d.b.GetTransaction(ctx, opts.Before)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving cursor %s", opts.Before)
		}
		before = tx.Slot
	}

	return d.b.Signatures(ctx, addr, before, limit)
}

// SendTransaction implements chainblob.Ledger.SendTransaction.
// The transaction is confirmed when SendTransaction returns.
func (d *Devnet) SendTransaction(ctx context.Context, payer chainblob.Address, ixs []chainblob.Instruction) (chainblob.Signature, error) {
	if len(ixs) == 0 {
		return "", errors.New("no instructions")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		last, err := d.b.LastSlot(ctx)
		if err != nil {
			return "", errors.Wrap(err, "getting last slot")
		}
		d.slot = last
		d.loaded = true
	}

	writes, err := d.prog.Execute(ctx, d.b, payer, ixs)
	if err != nil {
		return "", errors.Wrap(err, "executing transaction")
	}

	now := time.Now
	if d.Now != nil {
		now = d.Now
	}

	slot := d.slot + 1
	tx := &chainblob.Transaction{
		Signature:    MintSignature(payer, slot, ixs),
		Slot:         slot,
		BlockTime:    now().UTC().Truncate(time.Second),
		Payer:        payer,
		Instructions: ixs,
	}
	if err := d.b.Commit(ctx, tx, Addresses(tx), writes); err != nil {
		return "", errors.Wrapf(err, "committing transaction %s", tx.Signature)
	}
	d.slot = slot

	return tx.Signature, nil
}

// MintSignature produces a 64-byte, base58-encoded signature
// unique to the payer, slot, and instructions.
func MintSignature(payer chainblob.Address, slot uint64, ixs []chainblob.Instruction) chainblob.Signature {
	h := sha512.New()
	h.Write([]byte(payer))

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], slot)
	h.Write(buf[:])

	for _, ix := range ixs {
		h.Write([]byte(ix.ProgramID))
		for _, a := range ix.Accounts {
			h.Write([]byte(a.Key))
		}
		binary.LittleEndian.PutUint64(buf[:], uint64(len(ix.Data)))
		h.Write(buf[:])
		h.Write(ix.Data)
	}

	return chainblob.SignatureFromBytes(h.Sum(nil))
}

// Addresses lists, sorted and without duplicates,
// the addresses under which tx is indexed:
// its payer, its instructions' programs, and their accounts.
func Addresses(tx *chainblob.Transaction) []chainblob.Address {
	seen := map[chainblob.Address]struct{}{tx.Payer: {}}
	for _, ix := range tx.Instructions {
		seen[ix.ProgramID] = struct{}{}
		for _, a := range ix.Accounts {
			seen[a.Key] = struct{}{}
		}
	}
	delete(seen, "")

	result := make([]chainblob.Address, 0, len(seen))
	for a := range seen {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
