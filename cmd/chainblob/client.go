package main

import (
	"context"
	"flag"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/bobg/subcmd"

	"github.com/bobg/chainblob/ledger/rpc"
)

func (c maincmd) client(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		addr = fs.String("addr", ":2969", "server address")
		ins  = fs.Bool("insecure", false, "connect insecurely")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	var opts []grpc.DialOption
	if *ins {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	cc, err := grpc.Dial(*addr, opts...)
	if err != nil {
		return errors.Wrapf(err, "connecting to %s", *addr)
	}
	defer cc.Close()

	c.l = rpc.NewClient(cc)
	return subcmd.Run(ctx, c, fs.Args())
}
