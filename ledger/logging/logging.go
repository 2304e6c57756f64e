// Package logging implements a ledger that delegates everything to a nested ledger,
// logging operations as they happen.
package logging

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/ledger"
)

var _ chainblob.Ledger = &Ledger{}

// Ledger logs each call to a nested chainblob.Ledger.
// Successful calls log at debug level, failures at error level.
type Ledger struct {
	l      chainblob.Ledger
	logger zerolog.Logger
}

// New produces a Ledger logging calls to l through logger.
func New(l chainblob.Ledger, logger zerolog.Logger) *Ledger {
	return &Ledger{l: l, logger: logger}
}

func (l *Ledger) event(method string, opt chainblob.ReadOption, start time.Time, err error) *zerolog.Event {
	var ev *zerolog.Event
	if err != nil {
		ev = l.logger.Error().Err(err)
	} else {
		ev = l.logger.Debug()
	}
	ev = ev.Str("method", method).Dur("elapsed", time.Since(start))
	if opt.Freshness != "" {
		ev = ev.Str("tier", string(opt.Freshness))
	}
	return ev
}

func (l *Ledger) GetAccountInfo(ctx context.Context, addr chainblob.Address, opt chainblob.ReadOption) (*chainblob.Account, error) {
	start := time.Now()
	acct, err := l.l.GetAccountInfo(ctx, addr, opt)
	ev := l.event("GetAccountInfo", opt, start, err).Str("address", string(addr))
	if acct != nil {
		ev = ev.Int("len", len(acct.Data))
	}
	ev.Send()
	return acct, err
}

func (l *Ledger) GetTransaction(ctx context.Context, sig chainblob.Signature, opt chainblob.ReadOption) (*chainblob.Transaction, error) {
	start := time.Now()
	tx, err := l.l.GetTransaction(ctx, sig, opt)
	ev := l.event("GetTransaction", opt, start, err).Str("sig", string(sig))
	if tx != nil {
		ev = ev.Uint64("slot", tx.Slot).Int("instructions", len(tx.Instructions))
	}
	ev.Send()
	return tx, err
}

func (l *Ledger) GetSignaturesForAddress(ctx context.Context, addr chainblob.Address, opts chainblob.SignaturesOptions, opt chainblob.ReadOption) ([]chainblob.SignatureInfo, error) {
	start := time.Now()
	infos, err := l.l.GetSignaturesForAddress(ctx, addr, opts, opt)
	l.event("GetSignaturesForAddress", opt, start, err).
		Str("address", string(addr)).
		Str("before", string(opts.Before)).
		Int("limit", opts.Limit).
		Int("got", len(infos)).
		Send()
	return infos, err
}

func (l *Ledger) SendTransaction(ctx context.Context, payer chainblob.Address, ixs []chainblob.Instruction) (chainblob.Signature, error) {
	start := time.Now()
	sig, err := l.l.SendTransaction(ctx, payer, ixs)
	l.event("SendTransaction", chainblob.ReadOption{}, start, err).
		Str("payer", string(payer)).
		Int("instructions", len(ixs)).
		Str("sig", string(sig)).
		Send()
	return sig, err
}

func init() {
	ledger.Register("logging", func(ctx context.Context, conf map[string]interface{}) (chainblob.Ledger, error) {
		nested, err := ledger.ConfLedger(ctx, conf, "nested")
		if err != nil {
			return nil, errors.Wrap(err, "creating nested ledger")
		}
		return New(nested, log.Logger), nil
	})
}
