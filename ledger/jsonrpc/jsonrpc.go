// Package jsonrpc implements a chainblob.Ledger that talks to a blockchain node
// over its JSON-RPC HTTP interface.
package jsonrpc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	sjsonrpc "github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/ledger"
)

// DefaultEndpoint is the public devnet RPC endpoint.
const DefaultEndpoint = "https://api.devnet.solana.com"

// Defaults for a Client.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultConfirmTimeout = 60 * time.Second
	DefaultCommitment     = rpc.CommitmentConfirmed
)

var _ chainblob.Ledger = &Client{}

// Signer turns instructions into a signed, serialized transaction.
// Key management lives outside this package.
type Signer interface {
	Sign(ctx context.Context, payer chainblob.Address, ixs []chainblob.Instruction, blockhash string) ([]byte, error)
}

// ErrNoSigner is the error from SendTransaction on a Client without a Signer.
var ErrNoSigner = errors.New("no signer")

// TransactionError reports a transaction that landed but failed.
type TransactionError struct {
	Signature chainblob.Signature
	Err       interface{} // the node's error object
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

// Client is a node client.
type Client struct {
	Endpoint string
	RPC      *rpc.Client

	// Signer signs outgoing transactions.
	// A Client without one is read-only.
	Signer Signer

	Commitment     rpc.CommitmentType
	PollInterval   time.Duration
	ConfirmTimeout time.Duration

	Logger zerolog.Logger
}

// New produces a Client for endpoint with the given HTTP timeout.
// An empty endpoint means DefaultEndpoint,
// and a zero timeout means DefaultTimeout.
func New(endpoint string, timeout time.Duration, signer Signer) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	conn := sjsonrpc.NewClientWithOpts(endpoint, &sjsonrpc.RPCClientOpts{
		HTTPClient: &http.Client{Timeout: timeout},
	})
	return &Client{
		Endpoint:       endpoint,
		RPC:            rpc.NewWithCustomRPCClient(conn),
		Signer:         signer,
		Commitment:     DefaultCommitment,
		PollInterval:   DefaultPollInterval,
		ConfirmTimeout: DefaultConfirmTimeout,
		Logger:         zerolog.Nop(),
	}
}

func (c *Client) commitment() rpc.CommitmentType {
	if c.Commitment == "" {
		return DefaultCommitment
	}
	return c.Commitment
}

func (c *Client) logCall(method string, start time.Time, err error) {
	ev := c.Logger.Debug()
	if err != nil && !errors.Is(err, rpc.ErrNotFound) {
		ev = c.Logger.Error().Err(err)
	}
	ev.Str("method", method).Str("endpoint", c.Endpoint).Dur("elapsed", time.Since(start)).Msg("rpc call")
}

// GetAccountInfo implements chainblob.Getter.GetAccountInfo.
func (c *Client) GetAccountInfo(ctx context.Context, addr chainblob.Address, _ chainblob.ReadOption) (*chainblob.Account, error) {
	key, err := publicKey(addr)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := c.RPC.GetAccountInfoWithOpts(ctx, key, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment(),
	})
	c.logCall("getAccountInfo", start, err)
	if errors.Is(err, rpc.ErrNotFound) || (err == nil && (res == nil || res.Value == nil)) {
		return nil, errors.Wrapf(chainblob.ErrNotFound, "account %s", addr)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting account %s", addr)
	}
	return fromAccount(addr, res.Value), nil
}

// GetTransaction implements chainblob.Getter.GetTransaction.
func (c *Client) GetTransaction(ctx context.Context, sig chainblob.Signature, _ chainblob.ReadOption) (*chainblob.Transaction, error) {
	s, err := signature(sig)
	if err != nil {
		return nil, err
	}

	var version uint64
	start := time.Now()
	res, err := c.RPC.GetTransaction(ctx, s, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingJSON,
		Commitment:                     c.commitment(),
		MaxSupportedTransactionVersion: &version,
	})
	c.logCall("getTransaction", start, err)
	if errors.Is(err, rpc.ErrNotFound) || (err == nil && res == nil) {
		return nil, errors.Wrapf(chainblob.ErrNotFound, "transaction %s", sig)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting transaction %s", sig)
	}
	return fromTransaction(sig, res)
}

// GetSignaturesForAddress implements chainblob.Getter.GetSignaturesForAddress.
func (c *Client) GetSignaturesForAddress(ctx context.Context, addr chainblob.Address, opts chainblob.SignaturesOptions, _ chainblob.ReadOption) ([]chainblob.SignatureInfo, error) {
	key, err := publicKey(addr)
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 || limit > ledger.MaxSignaturesLimit {
		limit = ledger.MaxSignaturesLimit
	}
	o := &rpc.GetSignaturesForAddressOpts{Limit: &limit, Commitment: c.commitment()}
	if opts.Before != "" {
		if o.Before, err = signature(opts.Before); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	res, err := c.RPC.GetSignaturesForAddressWithOpts(ctx, key, o)
	c.logCall("getSignaturesForAddress", start, err)
	if err != nil {
		return nil, errors.Wrapf(err, "listing signatures of %s", addr)
	}

	infos := make([]chainblob.SignatureInfo, 0, len(res))
	for _, r := range res {
		if r == nil {
			continue
		}
		infos = append(infos, chainblob.SignatureInfo{
			Signature: chainblob.Signature(r.Signature.String()),
			Slot:      r.Slot,
			BlockTime: blockTime(r.BlockTime),
			Failed:    r.Err != nil,
		})
	}
	return infos, nil
}

// LatestBlockhash gets the blockhash a new transaction must reference.
func (c *Client) LatestBlockhash(ctx context.Context) (string, error) {
	start := time.Now()
	res, err := c.RPC.GetLatestBlockhash(ctx, c.commitment())
	c.logCall("getLatestBlockhash", start, err)
	if err != nil {
		return "", err
	}
	if res == nil || res.Value == nil || res.Value.Blockhash == (solana.Hash{}) {
		return "", errors.New("empty blockhash")
	}
	return res.Value.Blockhash.String(), nil
}

// SendTransaction implements chainblob.Ledger.SendTransaction.
// It signs the instructions against the latest blockhash,
// submits the transaction,
// and polls its status until it is confirmed, fails, or ConfirmTimeout elapses.
func (c *Client) SendTransaction(ctx context.Context, payer chainblob.Address, ixs []chainblob.Instruction) (chainblob.Signature, error) {
	if c.Signer == nil {
		return "", ErrNoSigner
	}

	blockhash, err := c.LatestBlockhash(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting blockhash")
	}
	raw, err := c.Signer.Sign(ctx, payer, ixs, blockhash)
	if err != nil {
		return "", errors.Wrap(err, "signing transaction")
	}

	start := time.Now()
	s, err := c.RPC.SendRawTransactionWithOpts(ctx, raw, rpc.TransactionOpts{PreflightCommitment: c.commitment()})
	c.logCall("sendTransaction", start, err)
	if err != nil {
		return "", errors.Wrap(err, "sending transaction")
	}

	sig := chainblob.Signature(s.String())
	if err := c.confirm(ctx, sig, s); err != nil {
		return "", err
	}
	return sig, nil
}

func (c *Client) confirm(ctx context.Context, sig chainblob.Signature, s solana.Signature) error {
	timeout := c.ConfirmTimeout
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		res, err := c.RPC.GetSignatureStatuses(ctx, false, s)
		c.logCall("getSignatureStatuses", start, err)
		if err != nil {
			return errors.Wrapf(err, "confirming %s", sig)
		}
		if res != nil && len(res.Value) > 0 && res.Value[0] != nil {
			st := res.Value[0]
			if st.Err != nil {
				return &TransactionError{Signature: sig, Err: st.Err}
			}
			if confirmed(st.ConfirmationStatus, c.commitment()) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "confirming %s", sig)
		case <-ticker.C:
		}
	}
}

var commitmentRank = map[string]int{
	"processed": 1,
	"confirmed": 2,
	"finalized": 3,
}

func confirmed(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	got, ok := commitmentRank[string(status)]
	return ok && got >= commitmentRank[string(want)]
}

func init() {
	ledger.Register("jsonrpc", func(_ context.Context, conf map[string]interface{}) (chainblob.Ledger, error) {
		endpoint, _ := ledger.ConfString(conf, "endpoint")
		var timeout time.Duration
		if s, ok := ledger.ConfString(conf, "timeout"); ok {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing timeout %s", s)
			}
			timeout = d
		}
		c := New(endpoint, timeout, nil)
		if commitment, ok := ledger.ConfString(conf, "commitment"); ok {
			c.Commitment = rpc.CommitmentType(commitment)
		}
		return c, nil
	})
}
