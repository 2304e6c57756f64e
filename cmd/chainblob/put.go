package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/planner"
)

func (c maincmd) put(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		name     = fs.String("name", "", "name to record the payload under")
		channel  = fs.String("channel", "", "peer address; write to the channel shared with this peer instead of the root listing")
		sequence = fs.Uint64("sequence", 0, "session sequence number (default: from the clock)")
		progress = fs.Bool("progress", false, "report chunk progress on stderr")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	payload, err := io.ReadAll(os.Stdin)
	if err != nil {
		return errors.Wrap(err, "reading stdin")
	}

	p, err := c.cfg.Planner(c.l, c.logger)
	if err != nil {
		return err
	}

	opts := planner.WriteOptions{Name: *name, Sequence: *sequence}
	if *progress {
		opts.Progress = func(done, total int) {
			fmt.Fprintf(os.Stderr, "\r%d/%d chunks", done, total)
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		}
	}

	var receipt *planner.Receipt
	if *channel != "" {
		conn, err := p.ConnectionAddress(chainblob.Address(*channel))
		if err != nil {
			return err
		}
		d, r, err := p.WriteToChannel(ctx, conn, payload, opts)
		if err != nil {
			return errors.Wrapf(err, "writing to channel %s", conn)
		}
		if !d.Allowed {
			return errors.Errorf("write to channel %s denied: %s", conn, d.Message)
		}
		receipt = r
	} else {
		receipt, err = p.Put(ctx, payload, opts)
		if err != nil {
			return errors.Wrap(err, "storing payload")
		}
	}

	fmt.Printf("strategy %s\npath %s\nrecord %s\n", receipt.Strategy, receipt.Path, receipt.RecordSignature)
	return nil
}
