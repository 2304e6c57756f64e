// Command chainblob stores and retrieves payloads on a ledger.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/bobg/subcmd"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/config"
	_ "github.com/bobg/chainblob/ledger/jsonrpc"
	_ "github.com/bobg/chainblob/ledger/logging"
	_ "github.com/bobg/chainblob/ledger/lru"
	_ "github.com/bobg/chainblob/ledger/mem"
	_ "github.com/bobg/chainblob/ledger/metrics"
	_ "github.com/bobg/chainblob/ledger/pg"
	_ "github.com/bobg/chainblob/ledger/rpc"
	_ "github.com/bobg/chainblob/ledger/sqlite3"
	_ "github.com/bobg/chainblob/ledger/tiered"
)

type maincmd struct {
	cfg    *config.Config
	l      chainblob.Ledger
	logger zerolog.Logger
}

func main() {
	configFile := flag.String("config", "chainblob.yaml", "path to config file")
	flag.Parse()

	if *configFile == "" {
		log.Fatal().Msg("config value not set")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", *configFile).Msg("loading config")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := cfg.Logger(os.Stderr)
	log.Logger = logger

	ctx := context.Background()

	l, err := cfg.Ledger(ctx, os.Getenv, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("creating ledger")
	}

	err = subcmd.Run(ctx, maincmd{cfg: cfg, l: l, logger: logger}, flag.Args())
	if err != nil {
		logger.Fatal().Err(err).Send()
	}
}

func (c maincmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"access": c.access,
		"client": c.client,
		"get":    c.get,
		"ls":     c.ls,
		"put":    c.put,
		"serve":  c.serve,
	}
}

var layouts = []string{
	time.RFC3339Nano, time.RFC3339, time.ANSIC, time.UnixDate,
}

func parsetime(s string) (time.Time, error) {
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("could not parse time")
}
