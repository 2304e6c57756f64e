// Package planner stores and retrieves payloads,
// choosing for each one the layout that suits its size
// and driving the linked-list and session engines.
package planner

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/access"
	"github.com/bobg/chainblob/codec"
	"github.com/bobg/chainblob/freshness"
	"github.com/bobg/chainblob/linked"
	"github.com/bobg/chainblob/pda"
	"github.com/bobg/chainblob/pool"
	"github.com/bobg/chainblob/record"
	"github.com/bobg/chainblob/session"
)

// Planner writes and reads payloads on one Ledger on behalf of one writer.
type Planner struct {
	Ledger chainblob.Ledger
	Codec  codec.Codec
	Writer chainblob.Address
	Limits Limits

	// Pool throttles and parallelizes every ledger call the Planner makes.
	// Sharing one Pool across Planners shares its rate limit.
	Pool *pool.Pool

	// Secondary and SecondaryTag describe an alternate program
	// whose chunks session reads also accept.
	// See session.DecodeBinary.
	Secondary    chainblob.Address
	SecondaryTag byte

	// Router picks the read tier of each payload.
	// Its clock also seeds session sequence numbers.
	Router freshness.Router

	Logger zerolog.Logger
}

// New produces a Planner with default limits and the light speed profile.
func New(l chainblob.Ledger, c codec.Codec, writer chainblob.Address) *Planner {
	return &Planner{
		Ledger: l,
		Codec:  c,
		Writer: writer,
		Limits: DefaultLimits(),
		Pool:   pool.New(pool.Light),
		Logger: zerolog.Nop(),
	}
}

// WriteOptions control one Write.
type WriteOptions struct {
	// Name is recorded in the metadata record.
	Name string

	// Sequence selects the session account for a session write.
	// Zero means one is taken from the clock.
	Sequence uint64

	// Progress, if not nil, is told of each chunk written.
	Progress pool.ProgressFunc
}

// Receipt describes a completed Write.
type Receipt struct {
	Strategy Strategy
	Path     chainblob.Path
	Record   record.Record

	// RecordSignature is the signature of the transaction
	// that committed Record, if it has been committed.
	RecordSignature chainblob.Signature
}

// Reference is what Read needs to reconstruct a payload.
type Reference struct {
	Path chainblob.Path

	// RecordedAt is when the payload's record landed.
	// Zero means unknown.
	RecordedAt time.Time

	// Data is the content of an inline payload.
	Data []byte
}

// ReferenceOf gives the Reference to the payload described by e.
func ReferenceOf(e record.Entry) Reference {
	return Reference{Path: e.Path, RecordedAt: e.RecordedAt, Data: e.Data}
}

func (p *Planner) now() time.Time {
	if p.Router.Now != nil {
		return p.Router.Now()
	}
	return time.Now()
}

func (p *Planner) limiter() *pool.Limiter {
	if p.Pool == nil {
		return nil
	}
	return p.Pool.Limiter
}

func (p *Planner) sessionOptions(progress pool.ProgressFunc) session.Options {
	return session.Options{
		Pool:         p.Pool,
		Secondary:    p.Secondary,
		SecondaryTag: p.SecondaryTag,
		Progress:     progress,
		Logger:       p.Logger,
	}
}

// Write stores payload and returns a Receipt whose Record tells how to find it again.
// The record itself is not written;
// see Commit.
func (p *Planner) Write(ctx context.Context, payload []byte, opts WriteOptions) (*Receipt, error) {
	lim := p.Limits.WithDefaults()
	chunks := chainblob.Split(payload, lim.ChunkSize)

	rec := record.Record{
		Name:        opts.Name,
		TotalChunks: len(chunks),
	}

	var inlineSize int
	if len(chunks) <= 1 {
		inline := rec
		inline.Strategy = string(Inline)
		inline.Data = payload
		b, err := inline.Marshal()
		if err != nil {
			return nil, err
		}
		inlineSize = len(b)
	}

	strategy := Choose(len(chunks), inlineSize, lim)
	rec.Strategy = string(strategy)

	switch strategy {
	case Inline:
		rec.Data = payload

	case LinkedList:
		tail, err := linked.Write(ctx, p.Ledger, p.Codec, p.Writer, chunks, linked.Options{
			Limiter:  p.limiter(),
			Progress: opts.Progress,
			Logger:   p.Logger,
		})
		if err != nil {
			return nil, errors.Wrap(err, "writing linked list")
		}
		rec.Path = chainblob.Path(tail)

	case Session:
		seq := opts.Sequence
		if seq == 0 {
			seq = uint64(p.now().UnixNano())
		}
		addr, err := session.Write(ctx, p.Ledger, p.Codec, p.Writer, seq, chunks, p.sessionOptions(opts.Progress))
		if err != nil {
			return nil, errors.Wrap(err, "writing session")
		}
		rec.Path = chainblob.Path(addr)
	}

	p.Logger.Info().
		Str("name", opts.Name).
		Str("strategy", string(strategy)).
		Int("bytes", len(payload)).
		Int("chunks", len(chunks)).
		Str("path", string(rec.Path)).
		Msg("wrote payload")

	return &Receipt{Strategy: strategy, Path: rec.Path, Record: rec}, nil
}

// Read reconstructs the payload ref refers to.
// The read tier is chosen once, from the path and its age,
// and used for every call the reconstruction makes.
func (p *Planner) Read(ctx context.Context, ref Reference) ([]byte, error) {
	opt := p.Router.Option(ref.Path, ref.RecordedAt)

	p.Logger.Debug().Str("path", string(ref.Path)).Str("kind", ref.Path.Kind().String()).Str("tier", string(opt.Tier())).Msg("reading payload")

	switch ref.Path.Kind() {
	case chainblob.PathInline:
		return ref.Data, nil

	case chainblob.PathSignature:
		return linked.Read(ctx, p.Ledger, p.Codec, ref.Path.Signature(), opt, linked.Options{
			Limiter: p.limiter(),
			Logger:  p.Logger,
		})

	default:
		return session.Read(ctx, p.Ledger, p.Codec, ref.Path.Address(), opt, p.sessionOptions(nil))
	}
}

// Root is the address of the writer's root listing.
func (p *Planner) Root() (chainblob.Address, error) {
	return pda.Root(p.Codec.ProgramID(), p.Writer)
}

// Commit writes rec to the target account with a write_record instruction.
// A zero target means the writer's root listing.
func (p *Planner) Commit(ctx context.Context, target chainblob.Address, rec record.Record) (chainblob.Signature, error) {
	return p.commit(ctx, target, "", rec)
}

func (p *Planner) commit(ctx context.Context, target, conn chainblob.Address, rec record.Record) (chainblob.Signature, error) {
	if target == "" {
		root, err := p.Root()
		if err != nil {
			return "", errors.Wrap(err, "deriving root address")
		}
		target = root
	}

	b, err := rec.Marshal()
	if err != nil {
		return "", err
	}

	accounts := map[string]chainblob.Address{"user": p.Writer, "target": target}
	if conn != "" {
		accounts["connection"] = conn
	}
	ix, err := p.Codec.Encode(codec.WriteRecord, accounts, codec.WriteRecordArgs{Record: b})
	if err != nil {
		return "", errors.Wrap(err, "encoding write_record")
	}

	if err := p.Pool.Wait(ctx); err != nil {
		return "", err
	}
	sig, err := p.Ledger.SendTransaction(ctx, p.Writer, []chainblob.Instruction{ix})
	if err != nil {
		return "", errors.Wrapf(err, "writing record to %s", target)
	}

	p.Logger.Info().Str("target", string(target)).Str("sig", string(sig)).Str("name", rec.Name).Msg("committed record")
	return sig, nil
}

// Put writes payload and commits its record to the writer's root listing.
func (p *Planner) Put(ctx context.Context, payload []byte, opts WriteOptions) (*Receipt, error) {
	receipt, err := p.Write(ctx, payload, opts)
	if err != nil {
		return nil, err
	}
	receipt.RecordSignature, err = p.Commit(ctx, "", receipt.Record)
	return receipt, err
}

// List returns the records in owner's root listing, oldest first.
// A zero owner means the Planner's writer.
func (p *Planner) List(ctx context.Context, owner chainblob.Address) ([]record.Entry, error) {
	if owner == "" {
		owner = p.Writer
	}
	root, err := pda.Root(p.Codec.ProgramID(), owner)
	if err != nil {
		return nil, errors.Wrap(err, "deriving root address")
	}
	return record.Scan(ctx, p.Ledger, p.Codec, root, chainblob.ReadOption{Freshness: chainblob.Recent}, record.ScanOptions{Pool: p.Pool})
}

// Get reads the newest payload named name in owner's root listing
// as of time at.
func (p *Planner) Get(ctx context.Context, owner chainblob.Address, name string, at time.Time) ([]byte, error) {
	entries, err := p.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	e, err := record.Latest(entries, name, at)
	if err != nil {
		return nil, errors.Wrapf(err, "finding %s", name)
	}
	return p.Read(ctx, ReferenceOf(e))
}

// Connection loads the state of the connection account at conn.
func (p *Planner) Connection(ctx context.Context, conn chainblob.Address) (access.ConnectionMeta, error) {
	var meta access.ConnectionMeta
	if err := p.Pool.Wait(ctx); err != nil {
		return meta, err
	}
	acct, err := p.Ledger.GetAccountInfo(ctx, conn, chainblob.ReadOption{Freshness: chainblob.Fresh})
	if err != nil {
		return meta, errors.Wrapf(err, "getting connection %s", conn)
	}
	err = p.Codec.DecodeState(acct.Data, codec.ConnectionState, &meta)
	return meta, errors.Wrapf(err, "decoding connection %s", conn)
}

// WriteToChannel stores payload in the two-party channel at conn
// and commits its record there,
// provided the connection lets the writer write.
// When it does not, the denying Decision is returned
// and nothing is submitted.
func (p *Planner) WriteToChannel(ctx context.Context, conn chainblob.Address, payload []byte, opts WriteOptions) (access.Decision, *Receipt, error) {
	meta, err := p.Connection(ctx, conn)
	if err != nil {
		return access.Decision{}, nil, err
	}

	d := access.Evaluate(meta, p.Writer)
	if !d.Allowed {
		p.Logger.Info().Str("connection", string(conn)).Str("reason", d.Message).Msg("channel write denied")
		return d, nil, nil
	}

	receipt, err := p.Write(ctx, payload, opts)
	if err != nil {
		return d, nil, err
	}
	receipt.RecordSignature, err = p.commit(ctx, conn, conn, receipt.Record)
	return d, receipt, err
}

// Channel returns the records written to the channel at conn, oldest first.
func (p *Planner) Channel(ctx context.Context, conn chainblob.Address) ([]record.Entry, error) {
	return record.Scan(ctx, p.Ledger, p.Codec, conn, chainblob.ReadOption{Freshness: chainblob.Recent}, record.ScanOptions{Pool: p.Pool})
}
