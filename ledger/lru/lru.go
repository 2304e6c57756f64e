// Package lru implements a ledger that acts as a least-recently-used cache for a nested ledger.
package lru

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/ledger"
)

var _ chainblob.Ledger = &Ledger{}

// Ledger implements a memory-based least-recently-used cache for a chainblob.Ledger.
// It caches only confirmed transactions, which never change.
// Account state and signature listings always come from the nested ledger,
// as do writes.
type Ledger struct {
	c *lru.Cache // Signature->*chainblob.Transaction
	l chainblob.Ledger
}

// New produces a new Ledger backed by `l` and caching up to `size` transactions.
func New(l chainblob.Ledger, size int) (*Ledger, error) {
	c, err := lru.New(size)
	return &Ledger{l: l, c: c}, err
}

// GetTransaction implements chainblob.Getter.GetTransaction.
// A cached transaction is returned regardless of the requested tier.
// Misses are not cached.
func (l *Ledger) GetTransaction(ctx context.Context, sig chainblob.Signature, opt chainblob.ReadOption) (*chainblob.Transaction, error) {
	if got, ok := l.c.Get(sig); ok {
		return got.(*chainblob.Transaction), nil
	}
	tx, err := l.l.GetTransaction(ctx, sig, opt)
	if err != nil {
		return nil, err
	}
	l.c.Add(sig, tx)
	return tx, nil
}

// GetAccountInfo implements chainblob.Getter.GetAccountInfo.
func (l *Ledger) GetAccountInfo(ctx context.Context, addr chainblob.Address, opt chainblob.ReadOption) (*chainblob.Account, error) {
	return l.l.GetAccountInfo(ctx, addr, opt)
}

// GetSignaturesForAddress implements chainblob.Getter.GetSignaturesForAddress.
func (l *Ledger) GetSignaturesForAddress(ctx context.Context, addr chainblob.Address, opts chainblob.SignaturesOptions, opt chainblob.ReadOption) ([]chainblob.SignatureInfo, error) {
	return l.l.GetSignaturesForAddress(ctx, addr, opts, opt)
}

// SendTransaction implements chainblob.Ledger.SendTransaction.
func (l *Ledger) SendTransaction(ctx context.Context, payer chainblob.Address, ixs []chainblob.Instruction) (chainblob.Signature, error) {
	return l.l.SendTransaction(ctx, payer, ixs)
}

func init() {
	ledger.Register("lru", func(ctx context.Context, conf map[string]interface{}) (chainblob.Ledger, error) {
		size, ok := conf["size"].(int)
		if !ok {
			return nil, errors.New(`missing "size" parameter`)
		}
		nested, err := ledger.ConfLedger(ctx, conf, "nested")
		if err != nil {
			return nil, errors.Wrap(err, "creating nested ledger")
		}
		return New(nested, size)
	})
}
