package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/access"
)

func (c maincmd) access(ctx context.Context, fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	args = fs.Args()
	if len(args) != 2 {
		return errors.New("usage: access request|approve|block|status PEER")
	}
	verb, peer := args[0], chainblob.Address(args[1])

	p, err := c.cfg.Planner(c.l, c.logger)
	if err != nil {
		return err
	}

	var conn chainblob.Address
	switch verb {
	case "request":
		conn, err = p.RequestConnection(ctx, peer)
	case "approve":
		conn, err = p.ApproveConnection(ctx, peer)
	case "block":
		conn, err = p.BlockConnection(ctx, peer)
	case "status":
		conn, err = p.ConnectionAddress(peer)
	default:
		return errors.Errorf("unknown access command %s", verb)
	}
	if err != nil {
		return errors.Wrapf(err, "%s connection with %s", verb, peer)
	}

	meta, err := p.Connection(ctx, conn)
	if err != nil {
		return err
	}
	d := access.Evaluate(meta, p.Writer)
	fmt.Printf("connection %s\nstatus %s\n", conn, meta.Status)
	if d.Allowed {
		fmt.Println("you may write")
	} else {
		fmt.Printf("you may not write: %s\n", d.Message)
	}
	return nil
}
