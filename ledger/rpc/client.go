package rpc

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/ledger"
	"github.com/bobg/chainblob/program"
)

var _ chainblob.Ledger = &Client{}

// Client is a chainblob.Ledger served by a remote Server.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient produces a Client talking over cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, method string, req, resp interface{}) error {
	in, err := pack(req)
	if err != nil {
		return err
	}
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return fromStatus(err)
	}
	return unpack(out, resp)
}

func fromStatus(err error) error {
	s, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch s.Code() {
	case codes.NotFound:
		return errors.Wrap(chainblob.ErrNotFound, s.Message())
	case codes.FailedPrecondition:
		return errors.Wrap(program.ErrRejected, s.Message())
	case codes.Canceled:
		return errors.Wrap(context.Canceled, s.Message())
	case codes.DeadlineExceeded:
		return errors.Wrap(context.DeadlineExceeded, s.Message())
	}
	return err
}

func (c *Client) GetAccountInfo(ctx context.Context, addr chainblob.Address, opt chainblob.ReadOption) (*chainblob.Account, error) {
	var resp account
	if err := c.call(ctx, methodGetAccountInfo, getAccountInfoRequest{Address: string(addr), Tier: string(opt.Freshness)}, &resp); err != nil {
		return nil, err
	}
	return &chainblob.Account{
		Address: chainblob.Address(resp.Address),
		Owner:   chainblob.Address(resp.Owner),
		Data:    resp.Data,
	}, nil
}

func (c *Client) GetTransaction(ctx context.Context, sig chainblob.Signature, opt chainblob.ReadOption) (*chainblob.Transaction, error) {
	var resp transaction
	if err := c.call(ctx, methodGetTransaction, getTransactionRequest{Signature: string(sig), Tier: string(opt.Freshness)}, &resp); err != nil {
		return nil, err
	}
	return resp.toTx()
}

func (c *Client) GetSignaturesForAddress(ctx context.Context, addr chainblob.Address, opts chainblob.SignaturesOptions, opt chainblob.ReadOption) ([]chainblob.SignatureInfo, error) {
	req := getSignaturesRequest{
		Address: string(addr),
		Before:  string(opts.Before),
		Limit:   opts.Limit,
		Tier:    string(opt.Freshness),
	}
	var resp []signatureInfo
	if err := c.call(ctx, methodGetSignaturesForAddress, req, &resp); err != nil {
		return nil, err
	}
	infos := make([]chainblob.SignatureInfo, 0, len(resp))
	for _, r := range resp {
		infos = append(infos, chainblob.SignatureInfo{
			Signature: chainblob.Signature(r.Signature),
			Slot:      r.Slot,
			BlockTime: toTime(r.BlockTime),
			Failed:    r.Failed,
		})
	}
	return infos, nil
}

func (c *Client) SendTransaction(ctx context.Context, payer chainblob.Address, ixs []chainblob.Instruction) (chainblob.Signature, error) {
	b, err := ledger.MarshalInstructions(ixs)
	if err != nil {
		return "", err
	}
	var resp sendTransactionResponse
	if err := c.call(ctx, methodSendTransaction, sendTransactionRequest{Payer: string(payer), Instructions: b}, &resp); err != nil {
		return "", err
	}
	return chainblob.Signature(resp.Signature), nil
}

func init() {
	ledger.Register("rpc", func(_ context.Context, conf map[string]interface{}) (chainblob.Ledger, error) {
		addr, ok := ledger.ConfString(conf, "addr")
		if !ok {
			return nil, errors.New(`missing "addr" parameter`)
		}
		var opts []grpc.DialOption
		if ins, _ := conf["insecure"].(bool); ins {
			opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		}
		cc, err := grpc.Dial(addr, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "connecting to %s", addr)
		}
		return NewClient(cc), nil
	})
}
