// Package session is the session storage engine.
//
// A session is an account derived from the writer and a sequence number.
// Its chunks are independent post_chunk transactions naming their own index,
// so they can be written and fetched concurrently
// and reassembled by index afterwards.
// The session address is all a reader needs.
package session

import (
	"bytes"
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/codec"
	"github.com/bobg/chainblob/pda"
	"github.com/bobg/chainblob/pool"
)

// Options control a session write or read.
type Options struct {
	// Pool runs chunk submissions and fetches.
	// Nil means one at a time, unthrottled.
	Pool *pool.Pool

	// PageSize is the GetSignaturesForAddress page size for reads.
	// Zero means chainblob.DefaultPageSize.
	PageSize int

	// Secondary, if set, is the address of a program whose instructions
	// carry chunks in the binary layout understood by DecodeBinary.
	Secondary chainblob.Address

	// SecondaryTag is the leading tag byte of that layout.
	// Zero means DefaultTag.
	SecondaryTag byte

	// Progress, if not nil, is told of each chunk written.
	Progress pool.ProgressFunc

	// Logger receives per-chunk debug output.
	Logger zerolog.Logger
}

// ErrNoChunks is the error for writing an empty chunk set.
var ErrNoChunks = errors.New("no chunks to write")

// Write stores chunks in the session identified by writer and sequence,
// creating the session account first if it does not exist,
// and returns the session address.
// Chunks are submitted concurrently through opts.Pool.
func Write(ctx context.Context, l chainblob.Ledger, c codec.Codec, writer chainblob.Address, sequence uint64, chunks [][]byte, opts Options) (chainblob.Address, error) {
	if len(chunks) == 0 {
		return "", ErrNoChunks
	}

	addr, err := pda.Session(c.ProgramID(), writer, sequence)
	if err != nil {
		return "", errors.Wrap(err, "deriving session address")
	}

	if err := opts.Pool.Wait(ctx); err != nil {
		return "", err
	}
	_, err = l.GetAccountInfo(ctx, addr, chainblob.ReadOption{Freshness: chainblob.Fresh})
	if errors.Is(err, chainblob.ErrNotFound) {
		ix, err := c.Encode(codec.CreateSession, map[string]chainblob.Address{"user": writer, "session": addr}, codec.CreateSessionArgs{
			Sequence:    sequence,
			TotalChunks: uint32(len(chunks)),
		})
		if err != nil {
			return "", errors.Wrap(err, "encoding create_session")
		}
		if err := opts.Pool.Wait(ctx); err != nil {
			return "", err
		}
		sig, err := l.SendTransaction(ctx, writer, []chainblob.Instruction{ix})
		if err != nil {
			return "", errors.Wrapf(err, "creating session %s", addr)
		}
		opts.Logger.Debug().Str("session", string(addr)).Str("sig", string(sig)).Msg("created session")
	} else if err != nil {
		return "", errors.Wrapf(err, "getting session %s", addr)
	}

	prog := pool.NewProgress(len(chunks), opts.Progress)
	err = opts.Pool.Run(ctx, len(chunks), func(ctx context.Context, i int) error {
		ix, err := c.Encode(codec.PostChunk, map[string]chainblob.Address{"user": writer, "session": addr}, codec.PostChunkArgs{
			Index: uint32(i),
			Chunk: chunks[i],
		})
		if err != nil {
			return errors.Wrapf(err, "encoding chunk %d", i)
		}
		sig, err := l.SendTransaction(ctx, writer, []chainblob.Instruction{ix})
		if err != nil {
			return errors.Wrapf(err, "posting chunk %d", i)
		}
		opts.Logger.Debug().Int("index", i).Str("sig", string(sig)).Msg("posted chunk")
		prog.Add(1)
		return nil
	})
	if err != nil {
		return "", err
	}

	return addr, nil
}

// Read reconstructs the payload stored in the session at addr.
// Every call uses opt.
//
// Transactions touching addr that carry no chunk, or that failed, are skipped.
// When an index was posted more than once, the latest posting wins.
// A gap in the indices is an error wrapping chainblob.ErrMissingChunk.
func Read(ctx context.Context, g chainblob.Getter, c codec.Codec, addr chainblob.Address, opt chainblob.ReadOption, opts Options) ([]byte, error) {
	infos, err := chainblob.ListSignatures(ctx, g, addr, opts.PageSize, opt, opts.Pool)
	if err != nil {
		return nil, err
	}
	// A failed transaction lands on the ledger without taking effect,
	// and anyone may submit one naming the session.
	infos = succeeded(infos)
	if len(infos) == 0 {
		return nil, errors.Wrapf(chainblob.ErrNotFound, "no transactions for session %s", addr)
	}

	sigs := make([]chainblob.Signature, 0, len(infos))
	for _, info := range infos {
		sigs = append(sigs, info.Signature)
	}
	txs, err := chainblob.GetMulti(ctx, g, sigs, opt, opts.Pool)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching transactions of session %s", addr)
	}

	// Oldest first, so later postings overwrite earlier ones.
	for i, j := 0, len(infos)-1; i < j; i, j = i+1, j-1 {
		infos[i], infos[j] = infos[j], infos[i]
	}
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].Slot < infos[j].Slot })

	tag := opts.SecondaryTag
	if tag == 0 {
		tag = DefaultTag
	}

	chunks := make(map[uint32][]byte)
	for _, info := range infos {
		tx := txs[info.Signature]
		if tx == nil || tx.Failed {
			continue
		}
		for _, ix := range tx.Instructions {
			index, chunk, ok := decode(c, ix, addr, opts.Secondary, tag)
			if !ok {
				continue
			}
			chunks[index] = chunk
		}
	}

	ordered := make([][]byte, len(chunks))
	for i := range ordered {
		chunk, ok := chunks[uint32(i)]
		if !ok {
			return nil, errors.Wrapf(chainblob.ErrMissingChunk, "session %s lacks index %d of %d", addr, i, len(chunks))
		}
		ordered[i] = chunk
	}

	opts.Logger.Debug().Str("session", string(addr)).Int("chunks", len(ordered)).Int("txs", len(infos)).Msg("read session")
	return bytes.Join(ordered, nil), nil
}

func succeeded(infos []chainblob.SignatureInfo) []chainblob.SignatureInfo {
	result := infos[:0]
	for _, info := range infos {
		if !info.Failed {
			result = append(result, info)
		}
	}
	return result
}

func decode(c codec.Codec, ix chainblob.Instruction, addr, secondary chainblob.Address, tag byte) (uint32, []byte, bool) {
	if ix.ProgramID == c.ProgramID() {
		var args codec.PostChunkArgs
		if err := c.Decode(ix, codec.PostChunk, &args); err != nil {
			return 0, nil, false
		}
		if sess, ok := c.Account(ix, codec.PostChunk, "session"); !ok || sess != addr {
			return 0, nil, false
		}
		return args.Index, args.Chunk, true
	}
	if secondary != "" && ix.ProgramID == secondary {
		return DecodeBinary(ix.Data, tag)
	}
	return 0, nil, false
}
