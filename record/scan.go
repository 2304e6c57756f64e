package record

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/codec"
	"github.com/bobg/chainblob/pool"
)

// Entry is a Record as found on chain.
type Entry struct {
	Record
	Signature  chainblob.Signature
	Target     chainblob.Address
	RecordedAt time.Time // block time of the transaction that wrote the record
}

// Fetch gets the record written by the transaction with signature sig.
// A transaction without a write_record instruction is an error wrapping chainblob.ErrDecodeMiss.
// A failed transaction is an error wrapping chainblob.ErrFailed.
func Fetch(ctx context.Context, g chainblob.Getter, c codec.Codec, sig chainblob.Signature, opt chainblob.ReadOption) (Entry, error) {
	tx, err := g.GetTransaction(ctx, sig, opt)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "fetching record transaction %s", sig)
	}
	if tx.Failed {
		return Entry{}, errors.Wrapf(chainblob.ErrFailed, "record transaction %s", sig)
	}
	return fromTx(c, tx)
}

func fromTx(c codec.Codec, tx *chainblob.Transaction) (Entry, error) {
	var args codec.WriteRecordArgs
	ix, err := codec.Find(c, tx, codec.WriteRecord, &args)
	if err != nil {
		return Entry{}, err
	}
	target, _ := c.Account(ix, codec.WriteRecord, "target")
	return Entry{
		Record:     Parse(args.Record),
		Signature:  tx.Signature,
		Target:     target,
		RecordedAt: tx.BlockTime,
	}, nil
}

// ScanOptions control Scan.
type ScanOptions struct {
	Pool     *pool.Pool
	PageSize int
}

// Scan lists the records written to target, oldest first.
// Transactions touching target that wrote no record to it, or that failed, are skipped.
func Scan(ctx context.Context, g chainblob.Getter, c codec.Codec, target chainblob.Address, opt chainblob.ReadOption, opts ScanOptions) ([]Entry, error) {
	infos, err := chainblob.ListSignatures(ctx, g, target, opts.PageSize, opt, opts.Pool)
	if err != nil {
		return nil, err
	}

	sigs := make([]chainblob.Signature, 0, len(infos))
	for _, info := range infos {
		if !info.Failed {
			sigs = append(sigs, info.Signature)
		}
	}
	txs, err := chainblob.GetMulti(ctx, g, sigs, opt, opts.Pool)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching records of %s", target)
	}

	var entries []Entry
	for i := len(infos) - 1; i >= 0; i-- {
		tx := txs[infos[i].Signature]
		if tx == nil || tx.Failed {
			continue
		}
		e, err := fromTx(c, tx)
		if errors.Is(err, chainblob.ErrDecodeMiss) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "decoding record %s", tx.Signature)
		}
		if e.Target != target {
			continue
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RecordedAt.Before(entries[j].RecordedAt)
	})
	return entries, nil
}

// Latest finds the newest entry for name
// whose RecordedAt is not later than at.
// Entries must be sorted by RecordedAt, as Scan returns them.
// It returns chainblob.ErrNotFound if there is none.
func Latest(entries []Entry, name string, at time.Time) (Entry, error) {
	var named []Entry
	for _, e := range entries {
		if e.Name == name {
			named = append(named, e)
		}
	}

	index := sort.Search(len(named), func(n int) bool {
		return named[n].RecordedAt.After(at)
	})
	if index == 0 {
		return Entry{}, chainblob.ErrNotFound
	}
	return named[index-1], nil
}
