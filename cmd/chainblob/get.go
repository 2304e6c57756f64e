package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/planner"
	"github.com/bobg/chainblob/record"
)

func (c maincmd) get(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		name  = fs.String("name", "", "name of payload to get")
		owner = fs.String("owner", "", "owner of the root listing (default: the configured writer)")
		path  = fs.String("path", "", "linked-list tail signature or session address of payload to get")
		sig   = fs.String("record", "", "signature of the transaction that recorded the payload")
		atstr = fs.String("at", "", "timestamp for name (default: now)")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	n := 0
	for _, s := range []string{*name, *path, *sig} {
		if s != "" {
			n++
		}
	}
	if n != 1 {
		return errors.New("must supply one of -name, -path, or -record")
	}

	p, err := c.cfg.Planner(c.l, c.logger)
	if err != nil {
		return err
	}

	var payload []byte
	switch {
	case *name != "":
		at := time.Now()
		if *atstr != "" {
			at, err = parsetime(*atstr)
			if err != nil {
				return errors.Wrap(err, "parsing -at")
			}
		}
		payload, err = p.Get(ctx, chainblob.Address(*owner), *name, at)
		if err != nil {
			return errors.Wrapf(err, "getting %s at time %s", *name, at)
		}

	case *path != "":
		payload, err = p.Read(ctx, planner.Reference{Path: chainblob.Path(*path)})
		if err != nil {
			return errors.Wrapf(err, "reading %s", *path)
		}

	default:
		e, err := record.Fetch(ctx, c.l, p.Codec, chainblob.Signature(*sig), chainblob.ReadOption{})
		if err != nil {
			return err
		}
		payload, err = p.Read(ctx, planner.ReferenceOf(e))
		if err != nil {
			return errors.Wrapf(err, "reading payload recorded by %s", *sig)
		}
	}

	_, err = os.Stdout.Write(payload)
	return errors.Wrap(err, "writing payload to stdout")
}
