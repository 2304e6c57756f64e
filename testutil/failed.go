package testutil

import (
	"context"

	"github.com/bobg/chainblob"
)

// Failed is a Getter that reports the transactions in Sigs as failed,
// the way a node lists a transaction that landed but did not execute.
// Listed controls whether signature listings carry the flag;
// transaction fetches always do.
type Failed struct {
	chainblob.Getter
	Sigs   map[chainblob.Signature]bool
	Listed bool
}

func (f *Failed) GetTransaction(ctx context.Context, sig chainblob.Signature, opt chainblob.ReadOption) (*chainblob.Transaction, error) {
	tx, err := f.Getter.GetTransaction(ctx, sig, opt)
	if err != nil {
		return nil, err
	}
	if f.Sigs[sig] {
		cp := *tx
		cp.Failed = true
		tx = &cp
	}
	return tx, nil
}

func (f *Failed) GetSignaturesForAddress(ctx context.Context, addr chainblob.Address, opts chainblob.SignaturesOptions, opt chainblob.ReadOption) ([]chainblob.SignatureInfo, error) {
	infos, err := f.Getter.GetSignaturesForAddress(ctx, addr, opts, opt)
	if err != nil || !f.Listed {
		return infos, err
	}
	for i := range infos {
		if f.Sigs[infos[i].Signature] {
			infos[i].Failed = true
		}
	}
	return infos, nil
}
