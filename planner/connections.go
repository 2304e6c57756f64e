package planner

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/codec"
	"github.com/bobg/chainblob/pda"
)

// ConnectionAddress is the address of the connection between the writer and peer.
func (p *Planner) ConnectionAddress(peer chainblob.Address) (chainblob.Address, error) {
	conn, _, _, err := pda.Connection(p.Codec.ProgramID(), p.Writer, peer)
	return conn, errors.Wrap(err, "deriving connection address")
}

// RequestConnection asks peer for a connection.
// It returns the connection address.
func (p *Planner) RequestConnection(ctx context.Context, peer chainblob.Address) (chainblob.Address, error) {
	conn, err := p.ConnectionAddress(peer)
	if err != nil {
		return "", err
	}
	_, err = p.send(ctx, codec.RequestConnection, map[string]chainblob.Address{"user": p.Writer, "peer": peer, "connection": conn})
	return conn, err
}

// ApproveConnection approves the pending connection with peer,
// or lifts the writer's block on it.
func (p *Planner) ApproveConnection(ctx context.Context, peer chainblob.Address) (chainblob.Address, error) {
	return p.lifecycle(ctx, codec.ApproveConnection, peer)
}

// BlockConnection blocks the connection with peer.
func (p *Planner) BlockConnection(ctx context.Context, peer chainblob.Address) (chainblob.Address, error) {
	return p.lifecycle(ctx, codec.BlockConnection, peer)
}

func (p *Planner) lifecycle(ctx context.Context, name string, peer chainblob.Address) (chainblob.Address, error) {
	conn, err := p.ConnectionAddress(peer)
	if err != nil {
		return "", err
	}
	_, err = p.send(ctx, name, map[string]chainblob.Address{"user": p.Writer, "connection": conn})
	return conn, err
}

func (p *Planner) send(ctx context.Context, name string, accounts map[string]chainblob.Address) (chainblob.Signature, error) {
	ix, err := p.Codec.Encode(name, accounts, codec.NoArgs{})
	if err != nil {
		return "", errors.Wrapf(err, "encoding %s", name)
	}
	if err := p.Pool.Wait(ctx); err != nil {
		return "", err
	}
	sig, err := p.Ledger.SendTransaction(ctx, p.Writer, []chainblob.Instruction{ix})
	if err != nil {
		return "", errors.Wrapf(err, "sending %s", name)
	}
	p.Logger.Info().Str("instruction", name).Str("sig", string(sig)).Msg("connection update")
	return sig, nil
}
