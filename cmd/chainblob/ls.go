package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/record"
)

func (c maincmd) ls(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		owner   = fs.String("owner", "", "owner of the root listing (default: the configured writer)")
		channel = fs.String("channel", "", "peer address; list the channel shared with this peer instead")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	p, err := c.cfg.Planner(c.l, c.logger)
	if err != nil {
		return err
	}

	var entries []record.Entry
	if *channel != "" {
		conn, err := p.ConnectionAddress(chainblob.Address(*channel))
		if err != nil {
			return err
		}
		entries, err = p.Channel(ctx, conn)
		if err != nil {
			return errors.Wrapf(err, "listing channel %s", conn)
		}
	} else {
		entries, err = p.List(ctx, chainblob.Address(*owner))
		if err != nil {
			return errors.Wrap(err, "listing root")
		}
	}

	for _, e := range entries {
		path := string(e.Path)
		if path == "" {
			path = fmt.Sprintf("(inline, %d bytes)", len(e.Data))
		}
		fmt.Printf("%s %-12s %-20s %s\n", e.RecordedAt.Format(time.RFC3339), e.Strategy, e.Name, path)
	}
	return nil
}
