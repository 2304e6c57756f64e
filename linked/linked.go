// Package linked is the linked-list storage engine.
//
// Each chunk of a payload lands in its own send_code transaction,
// which names its predecessor's signature in before_tx.
// The first node names chainblob.Genesis instead.
// The signature of the last node, the tail, is all a reader needs.
package linked

import (
	"bytes"
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/codec"
	"github.com/bobg/chainblob/pool"
)

// Options control a linked-list write or read.
type Options struct {
	// Limiter throttles every submission and fetch.
	// Nil means unthrottled.
	Limiter *pool.Limiter

	// Progress, if not nil, is told of each chunk written or read.
	Progress pool.ProgressFunc

	// Logger receives per-chunk debug output.
	// The zero value discards it.
	Logger zerolog.Logger
}

// ErrNoChunks is the error for writing an empty chunk set,
// which would leave no tail to refer to.
var ErrNoChunks = errors.New("no chunks to write")

// Write stores chunks as a linked list of send_code transactions paid for by writer,
// and returns the tail signature.
// Writes are strictly sequential, each one waiting on opts.Limiter,
// since every node must name the signature of the one before.
func Write(ctx context.Context, l chainblob.Ledger, c codec.Codec, writer chainblob.Address, chunks [][]byte, opts Options) (chainblob.Signature, error) {
	if len(chunks) == 0 {
		return "", ErrNoChunks
	}

	var (
		before = chainblob.Signature(chainblob.Genesis)
		prog   = pool.NewProgress(len(chunks), opts.Progress)
	)
	for i, chunk := range chunks {
		ix, err := c.Encode(codec.SendCode, map[string]chainblob.Address{"user": writer}, codec.SendCodeArgs{
			Code:     chunk,
			BeforeTx: string(before),
		})
		if err != nil {
			return "", errors.Wrapf(err, "encoding node %d", i)
		}
		if err := opts.Limiter.Wait(ctx); err != nil {
			return "", err
		}
		sig, err := l.SendTransaction(ctx, writer, []chainblob.Instruction{ix})
		if err != nil {
			return "", errors.Wrapf(err, "sending node %d", i)
		}
		opts.Logger.Debug().Int("node", i).Str("sig", string(sig)).Str("before", string(before)).Msg("linked write")
		prog.Add(1)
		before = sig
	}

	return before, nil
}

// Read reconstructs the payload whose tail signature is tail.
// It walks before_tx links back to Genesis, then reverses.
// Every fetch uses opt.
//
// A transaction without a send_code instruction is an error wrapping chainblob.ErrDecodeMiss.
// A link back to an already-visited signature is a *chainblob.LoopError.
func Read(ctx context.Context, g chainblob.Getter, c codec.Codec, tail chainblob.Signature, opt chainblob.ReadOption, opts Options) ([]byte, error) {
	var (
		chunks  [][]byte
		visited = make(map[chainblob.Signature]struct{})
		prog    = pool.NewProgress(0, opts.Progress)
	)

	for cursor := tail; cursor != chainblob.Genesis; {
		if _, ok := visited[cursor]; ok {
			return nil, &chainblob.LoopError{Signature: cursor, Steps: len(chunks)}
		}
		visited[cursor] = struct{}{}

		if err := opts.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
		tx, err := g.GetTransaction(ctx, cursor, opt)
		if err != nil {
			return nil, errors.Wrapf(err, "fetching node %s", cursor)
		}
		if tx.Failed {
			return nil, errors.Wrapf(chainblob.ErrFailed, "node %s", cursor)
		}

		var args codec.SendCodeArgs
		if _, err := codec.Find(c, tx, codec.SendCode, &args); err != nil {
			return nil, errors.Wrapf(err, "decoding node %s", cursor)
		}

		opts.Logger.Debug().Str("sig", string(cursor)).Str("before", args.BeforeTx).Int("len", len(args.Code)).Msg("linked read")
		chunks = append(chunks, args.Code)
		prog.Add(1)
		cursor = chainblob.Signature(args.BeforeTx)
	}

	for i, j := 0, len(chunks)-1; i < j; i, j = i+1, j-1 {
		chunks[i], chunks[j] = chunks[j], chunks[i]
	}
	return bytes.Join(chunks, nil), nil
}
