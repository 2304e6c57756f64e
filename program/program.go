// Package program executes chainblob program instructions against account state.
// Development ledgers use it to behave like a real ledger running the program:
// session accounts come into existence on create_session,
// and connection accounts follow their lifecycle.
// Instructions for other programs are accepted without effect.
package program

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/access"
	"github.com/bobg/chainblob/codec"
	"github.com/bobg/chainblob/pda"
)

// State gives read access to committed accounts.
type State interface {
	// GetAccount returns chainblob.ErrNotFound for a missing account.
	GetAccount(context.Context, chainblob.Address) (*chainblob.Account, error)
}

// Program executes instructions.
type Program struct {
	c codec.Codec
}

// New produces a Program whose instructions are decoded with c.
func New(c codec.Codec) *Program {
	return &Program{c: c}
}

// ID is the program's address.
func (p *Program) ID() chainblob.Address { return p.c.ProgramID() }

// ErrRejected is wrapped by errors for instructions the program refuses.
var ErrRejected = errors.New("instruction rejected")

// Execute runs ixs, submitted by payer, in order.
// It returns the accounts the transaction writes.
// Nothing is written if any instruction fails.
func (p *Program) Execute(ctx context.Context, st State, payer chainblob.Address, ixs []chainblob.Instruction) ([]*chainblob.Account, error) {
	x := &execution{
		p:      p,
		st:     st,
		payer:  payer,
		writes: make(map[chainblob.Address]*chainblob.Account),
	}
	for i, ix := range ixs {
		if ix.ProgramID != p.ID() {
			continue
		}
		if err := x.run(ctx, ix); err != nil {
			return nil, errors.Wrapf(err, "instruction %d", i)
		}
	}

	result := make([]*chainblob.Account, 0, len(x.writes))
	for _, acct := range x.writes {
		result = append(result, acct)
	}
	return result, nil
}

type execution struct {
	p      *Program
	st     State
	payer  chainblob.Address
	writes map[chainblob.Address]*chainblob.Account
}

func (x *execution) get(ctx context.Context, addr chainblob.Address) (*chainblob.Account, error) {
	if acct, ok := x.writes[addr]; ok {
		return acct, nil
	}
	return x.st.GetAccount(ctx, addr)
}

func (x *execution) put(addr chainblob.Address, kind string, v interface{}) error {
	data, err := x.p.c.EncodeState(kind, v)
	if err != nil {
		return err
	}
	x.writes[addr] = &chainblob.Account{Address: addr, Owner: x.p.ID(), Data: data}
	return nil
}

func (x *execution) account(ix chainblob.Instruction, name, account string) (chainblob.Address, error) {
	key, ok := x.p.c.Account(ix, name, account)
	if !ok {
		return "", errors.Wrapf(ErrRejected, "%s: missing %s account", name, account)
	}
	return key, nil
}

func (x *execution) signer(ix chainblob.Instruction, name string) (chainblob.Address, error) {
	user, err := x.account(ix, name, "user")
	if err != nil {
		return "", err
	}
	if user != x.payer {
		return "", errors.Wrapf(ErrRejected, "%s: user %s did not sign", name, user)
	}
	return user, nil
}

func (x *execution) run(ctx context.Context, ix chainblob.Instruction) error {
	if err := x.p.c.Decode(ix, codec.SendCode, &codec.SendCodeArgs{}); err == nil {
		_, err = x.signer(ix, codec.SendCode)
		return err
	}

	var cs codec.CreateSessionArgs
	if err := x.p.c.Decode(ix, codec.CreateSession, &cs); err == nil {
		return x.createSession(ctx, ix, cs)
	}

	if err := x.p.c.Decode(ix, codec.PostChunk, &codec.PostChunkArgs{}); err == nil {
		return x.postChunk(ctx, ix)
	}

	if err := x.p.c.Decode(ix, codec.WriteRecord, &codec.WriteRecordArgs{}); err == nil {
		return x.writeRecord(ctx, ix)
	}

	if err := x.p.c.Decode(ix, codec.RequestConnection, &codec.NoArgs{}); err == nil {
		return x.requestConnection(ctx, ix)
	}

	if err := x.p.c.Decode(ix, codec.ApproveConnection, &codec.NoArgs{}); err == nil {
		return x.transition(ctx, ix, codec.ApproveConnection, access.Approved)
	}

	if err := x.p.c.Decode(ix, codec.BlockConnection, &codec.NoArgs{}); err == nil {
		return x.transition(ctx, ix, codec.BlockConnection, access.Blocked)
	}

	return errors.Wrap(ErrRejected, "unknown instruction")
}

func (x *execution) createSession(ctx context.Context, ix chainblob.Instruction, args codec.CreateSessionArgs) error {
	user, err := x.signer(ix, codec.CreateSession)
	if err != nil {
		return err
	}
	sess, err := x.account(ix, codec.CreateSession, "session")
	if err != nil {
		return err
	}
	want, err := pda.Session(x.p.ID(), user, args.Sequence)
	if err != nil {
		return err
	}
	if sess != want {
		return errors.Wrapf(ErrRejected, "session account %s is not the derived address %s", sess, want)
	}
	_, err = x.get(ctx, sess)
	if err == nil {
		return errors.Wrapf(ErrRejected, "session %s already exists", sess)
	}
	if !errors.Is(err, chainblob.ErrNotFound) {
		return err
	}
	return x.put(sess, codec.SessionState, codec.SessionRecord{
		Writer:      user,
		Sequence:    args.Sequence,
		TotalChunks: args.TotalChunks,
	})
}

func (x *execution) postChunk(ctx context.Context, ix chainblob.Instruction) error {
	user, err := x.signer(ix, codec.PostChunk)
	if err != nil {
		return err
	}
	sess, err := x.account(ix, codec.PostChunk, "session")
	if err != nil {
		return err
	}
	acct, err := x.get(ctx, sess)
	if err != nil {
		return errors.Wrapf(err, "getting session %s", sess)
	}
	var rec codec.SessionRecord
	if err := x.p.c.DecodeState(acct.Data, codec.SessionState, &rec); err != nil {
		return errors.Wrapf(err, "decoding session %s", sess)
	}
	if rec.Writer != user {
		return errors.Wrapf(ErrRejected, "session %s belongs to %s", sess, rec.Writer)
	}
	return nil
}

func (x *execution) writeRecord(ctx context.Context, ix chainblob.Instruction) error {
	user, err := x.signer(ix, codec.WriteRecord)
	if err != nil {
		return err
	}
	conn, ok := x.p.c.Account(ix, codec.WriteRecord, "connection")
	if !ok {
		return nil
	}
	meta, err := x.connection(ctx, conn)
	if err != nil {
		return err
	}
	if d := access.Evaluate(meta, user); !d.Allowed {
		return errors.Wrap(ErrRejected, d.Message)
	}
	return nil
}

func (x *execution) connection(ctx context.Context, addr chainblob.Address) (access.ConnectionMeta, error) {
	var meta access.ConnectionMeta
	acct, err := x.get(ctx, addr)
	if err != nil {
		return meta, errors.Wrapf(err, "getting connection %s", addr)
	}
	err = x.p.c.DecodeState(acct.Data, codec.ConnectionState, &meta)
	return meta, errors.Wrapf(err, "decoding connection %s", addr)
}

func (x *execution) requestConnection(ctx context.Context, ix chainblob.Instruction) error {
	user, err := x.signer(ix, codec.RequestConnection)
	if err != nil {
		return err
	}
	peer, err := x.account(ix, codec.RequestConnection, "peer")
	if err != nil {
		return err
	}
	if peer == user {
		return errors.Wrap(ErrRejected, "cannot connect to self")
	}
	conn, err := x.account(ix, codec.RequestConnection, "connection")
	if err != nil {
		return err
	}
	want, partyA, partyB, err := pda.Connection(x.p.ID(), user, peer)
	if err != nil {
		return err
	}
	if conn != want {
		return errors.Wrapf(ErrRejected, "connection account %s is not the derived address %s", conn, want)
	}
	_, err = x.get(ctx, conn)
	if err == nil {
		return errors.Wrapf(ErrRejected, "connection %s already exists", conn)
	}
	if !errors.Is(err, chainblob.ErrNotFound) {
		return err
	}

	meta := access.ConnectionMeta{
		PartyA:  partyA,
		PartyB:  partyB,
		Status:  access.Pending,
		Blocker: access.RoleNone,
	}
	meta.Requester = meta.RoleOf(user)
	return x.put(conn, codec.ConnectionState, meta)
}

func (x *execution) transition(ctx context.Context, ix chainblob.Instruction, name string, to access.Status) error {
	user, err := x.signer(ix, name)
	if err != nil {
		return err
	}
	conn, err := x.account(ix, name, "connection")
	if err != nil {
		return err
	}
	meta, err := x.connection(ctx, conn)
	if err != nil {
		return err
	}
	role := meta.RoleOf(user)
	if role == access.RoleNone {
		return errors.Wrap(ErrRejected, access.MsgNotParticipant)
	}
	if !access.CanTransition(meta.Status, to) {
		return errors.Wrapf(ErrRejected, "connection cannot go from %s to %s", meta.Status, to)
	}

	switch to {
	case access.Approved:
		if meta.Status == access.Pending && role == meta.Requester {
			return errors.Wrap(ErrRejected, "the requester cannot approve its own request")
		}
		if meta.Status == access.Blocked && role != meta.Blocker {
			return errors.Wrap(ErrRejected, "only the blocker can unblock")
		}
		meta.Blocker = access.RoleNone

	case access.Blocked:
		meta.Blocker = role
	}

	meta.Status = to
	return x.put(conn, codec.ConnectionState, meta)
}
