// Package config loads the YAML configuration that wires a planner to its ledger.
package config

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/codec"
	"github.com/bobg/chainblob/freshness"
	"github.com/bobg/chainblob/ledger"
	"github.com/bobg/chainblob/ledger/jsonrpc"
	"github.com/bobg/chainblob/ledger/tiered"
	"github.com/bobg/chainblob/planner"
	"github.com/bobg/chainblob/pool"
)

// Environment variables consulted for RPC endpoints missing from the file.
const (
	EnvRPC        = "CHAINBLOB_RPC"
	EnvRPCFresh   = "CHAINBLOB_RPC_FRESH"
	EnvRPCRecent  = "CHAINBLOB_RPC_RECENT"
	EnvRPCArchive = "CHAINBLOB_RPC_ARCHIVE"
)

// Config is the top-level configuration document.
type Config struct {
	ProgramID          string `yaml:"program_id"`
	SecondaryProgramID string `yaml:"secondary_program_id"`
	SecondaryTag       int    `yaml:"secondary_tag"`

	// Writer is the address that pays for and signs writes.
	Writer string `yaml:"writer"`

	// Speed names a pool.Profile.
	// Unknown names fall back to pool.Light.
	Speed string `yaml:"speed"`

	Limits planner.Limits `yaml:"limits"`
	RPC    RPCConfig      `yaml:"rpc"`

	// LedgerConf, if present, is handed to ledger.Create in place of the RPC tiers.
	// It must name its backend under "type".
	LedgerConf map[string]interface{} `yaml:"ledger"`

	Log LogConfig `yaml:"log"`
}

// RPCConfig holds the node endpoint of each read tier.
type RPCConfig struct {
	Fresh   string `yaml:"fresh"`
	Recent  string `yaml:"recent"`
	Archive string `yaml:"archive"`

	// Timeout is the HTTP timeout of each call, as a time.ParseDuration string.
	Timeout string `yaml:"timeout"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // a zerolog level name; default info
	Format string `yaml:"format"` // "console" (default) or "json"
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}
	return Parse(data)
}

// Parse parses a configuration document.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for values no component could use.
func (c *Config) Validate() error {
	if c.SecondaryTag < 0 || c.SecondaryTag > 255 {
		return errors.Errorf("secondary_tag %d out of range", c.SecondaryTag)
	}
	if c.RPC.Timeout != "" {
		if _, err := time.ParseDuration(c.RPC.Timeout); err != nil {
			return errors.Wrapf(err, "parsing rpc.timeout %s", c.RPC.Timeout)
		}
	}
	if c.LedgerConf != nil {
		if _, ok := ledger.ConfString(c.LedgerConf, "type"); !ok {
			return errors.New("ledger section missing type")
		}
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrapf(err, "parsing log.level %s", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return errors.Errorf("unknown log.format %s", c.Log.Format)
	}
	return nil
}

// Resolve fills in the endpoints missing from r.
// A tier without an endpoint takes its own environment variable,
// then EnvRPC,
// then jsonrpc.DefaultEndpoint.
// Getenv looks up environment variables; os.Getenv will do.
func (r RPCConfig) Resolve(getenv func(string) string) RPCConfig {
	pick := func(explicit, env string) string {
		if explicit != "" {
			return explicit
		}
		if v := getenv(env); v != "" {
			return v
		}
		if v := getenv(EnvRPC); v != "" {
			return v
		}
		return jsonrpc.DefaultEndpoint
	}
	r.Fresh = pick(r.Fresh, EnvRPCFresh)
	r.Recent = pick(r.Recent, EnvRPCRecent)
	r.Archive = pick(r.Archive, EnvRPCArchive)
	return r
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil || c.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	if c.Log.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Ledger builds the ledger the configuration describes.
// With a ledger section it is created from the registry,
// taking program_id from the top level when the section has none.
// Otherwise it is a tiered.Ledger of JSON-RPC clients,
// one per distinct endpoint, with the archive tier as the default.
// Those clients are read-only unless signer is given.
func (c *Config) Ledger(ctx context.Context, getenv func(string) string, signer jsonrpc.Signer) (chainblob.Ledger, error) {
	if c.LedgerConf != nil {
		conf := make(map[string]interface{}, len(c.LedgerConf)+1)
		for k, v := range c.LedgerConf {
			conf[k] = v
		}
		if _, ok := conf["program_id"]; !ok && c.ProgramID != "" {
			conf["program_id"] = c.ProgramID
		}
		typ, _ := ledger.ConfString(conf, "type")
		l, err := ledger.Create(ctx, typ, conf)
		return l, errors.Wrapf(err, "creating %s ledger", typ)
	}

	var timeout time.Duration
	if c.RPC.Timeout != "" {
		var err error
		timeout, err = time.ParseDuration(c.RPC.Timeout)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing rpc.timeout %s", c.RPC.Timeout)
		}
	}

	rpc := c.RPC.Resolve(getenv)
	clients := make(map[string]*jsonrpc.Client)
	client := func(endpoint string) *jsonrpc.Client {
		if cl, ok := clients[endpoint]; ok {
			return cl
		}
		cl := jsonrpc.New(endpoint, timeout, signer)
		clients[endpoint] = cl
		return cl
	}

	l := tiered.New(client(rpc.Archive))
	l.Tiers[chainblob.Fresh] = client(rpc.Fresh)
	l.Tiers[chainblob.Recent] = client(rpc.Recent)
	l.Tiers[chainblob.Archive] = client(rpc.Archive)
	return l, nil
}

// ProgramAddress is the configured program ID,
// or ledger.DefaultProgramID if none is configured.
func (c *Config) ProgramAddress() chainblob.Address {
	if c.ProgramID == "" {
		return ledger.DefaultProgramID
	}
	return chainblob.Address(c.ProgramID)
}

// Planner builds a Planner for the configured writer on l.
func (c *Config) Planner(l chainblob.Ledger, logger zerolog.Logger) (*planner.Planner, error) {
	if c.Writer == "" {
		return nil, errors.New("no writer configured")
	}
	p := planner.New(l, codec.New(c.ProgramAddress()), chainblob.Address(c.Writer))
	p.Limits = c.Limits.WithDefaults()
	prof := pool.ProfileByName(c.Speed)
	if c.Speed != "" && prof.Name != c.Speed {
		logger.Warn().Str("speed", c.Speed).Str("using", prof.Name).Msg("unknown speed profile")
	}
	p.Pool = pool.New(prof)
	p.Secondary = chainblob.Address(c.SecondaryProgramID)
	p.SecondaryTag = byte(c.SecondaryTag)
	p.Router = freshness.Router{}
	p.Logger = logger
	return p, nil
}
