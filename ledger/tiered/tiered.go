// Package tiered implements a ledger that sends each read to the RPC tier its ReadOption names.
package tiered

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/ledger"
)

var _ chainblob.Ledger = &Ledger{}

// Ledger routes reads by chainblob.ReadOption.Tier.
// A tier with no ledger of its own is served by Default.
// Writes always go to the fresh tier, or Default when there is none,
// so a just-landed transaction is visible to the reads that follow it.
type Ledger struct {
	Tiers   map[chainblob.Freshness]chainblob.Ledger
	Default chainblob.Ledger
}

// New produces a Ledger whose tiers all default to def.
func New(def chainblob.Ledger) *Ledger {
	return &Ledger{
		Tiers:   make(map[chainblob.Freshness]chainblob.Ledger),
		Default: def,
	}
}

// Route gives the ledger serving tier.
func (l *Ledger) Route(tier chainblob.Freshness) chainblob.Ledger {
	if t, ok := l.Tiers[tier]; ok && t != nil {
		return t
	}
	return l.Default
}

func (l *Ledger) GetAccountInfo(ctx context.Context, addr chainblob.Address, opt chainblob.ReadOption) (*chainblob.Account, error) {
	return l.Route(opt.Tier()).GetAccountInfo(ctx, addr, opt)
}

func (l *Ledger) GetTransaction(ctx context.Context, sig chainblob.Signature, opt chainblob.ReadOption) (*chainblob.Transaction, error) {
	return l.Route(opt.Tier()).GetTransaction(ctx, sig, opt)
}

func (l *Ledger) GetSignaturesForAddress(ctx context.Context, addr chainblob.Address, opts chainblob.SignaturesOptions, opt chainblob.ReadOption) ([]chainblob.SignatureInfo, error) {
	return l.Route(opt.Tier()).GetSignaturesForAddress(ctx, addr, opts, opt)
}

func (l *Ledger) SendTransaction(ctx context.Context, payer chainblob.Address, ixs []chainblob.Instruction) (chainblob.Signature, error) {
	return l.Route(chainblob.Fresh).SendTransaction(ctx, payer, ixs)
}

func init() {
	ledger.Register("tiered", func(ctx context.Context, conf map[string]interface{}) (chainblob.Ledger, error) {
		def, err := ledger.ConfLedger(ctx, conf, "default")
		if err != nil {
			return nil, errors.Wrap(err, "creating default ledger")
		}
		l := New(def)
		for _, tier := range []chainblob.Freshness{chainblob.Fresh, chainblob.Recent, chainblob.Archive} {
			if _, ok := conf[string(tier)]; !ok {
				continue
			}
			t, err := ledger.ConfLedger(ctx, conf, string(tier))
			if err != nil {
				return nil, errors.Wrapf(err, "creating %s ledger", tier)
			}
			l.Tiers[tier] = t
		}
		return l, nil
	})
}
