package rpc

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/ledger"
	"github.com/bobg/chainblob/program"
)

var _ handler = &Server{}

// Server exposes a chainblob.Ledger as a gRPC service.
type Server struct {
	l chainblob.Ledger
}

// NewServer produces a Server for l.
// Add it to a grpc.Server with Register.
func NewServer(l chainblob.Ledger) *Server {
	return &Server{l: l}
}

func (s *Server) handle(ctx context.Context, method string, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var (
		resp interface{}
		err  error
	)
	switch method {
	case methodGetAccountInfo:
		resp, err = s.getAccountInfo(ctx, req)
	case methodGetTransaction:
		resp, err = s.getTransaction(ctx, req)
	case methodGetSignaturesForAddress:
		resp, err = s.getSignatures(ctx, req)
	case methodSendTransaction:
		resp, err = s.sendTransaction(ctx, req)
	default:
		return nil, status.Errorf(codes.Unimplemented, "unknown method %s", method)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return pack(resp)
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, chainblob.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, program.ErrRejected):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func (s *Server) getAccountInfo(ctx context.Context, req *wrapperspb.BytesValue) (interface{}, error) {
	var r getAccountInfoRequest
	if err := unpack(req, &r); err != nil {
		return nil, err
	}
	acct, err := s.l.GetAccountInfo(ctx, chainblob.Address(r.Address), chainblob.ReadOption{Freshness: chainblob.Freshness(r.Tier)})
	if err != nil {
		return nil, err
	}
	return account{Address: string(acct.Address), Owner: string(acct.Owner), Data: acct.Data}, nil
}

func (s *Server) getTransaction(ctx context.Context, req *wrapperspb.BytesValue) (interface{}, error) {
	var r getTransactionRequest
	if err := unpack(req, &r); err != nil {
		return nil, err
	}
	tx, err := s.l.GetTransaction(ctx, chainblob.Signature(r.Signature), chainblob.ReadOption{Freshness: chainblob.Freshness(r.Tier)})
	if err != nil {
		return nil, err
	}
	return fromTx(tx)
}

func (s *Server) getSignatures(ctx context.Context, req *wrapperspb.BytesValue) (interface{}, error) {
	var r getSignaturesRequest
	if err := unpack(req, &r); err != nil {
		return nil, err
	}
	if r.Limit > ledger.MaxSignaturesLimit {
		r.Limit = ledger.MaxSignaturesLimit
	}
	infos, err := s.l.GetSignaturesForAddress(ctx, chainblob.Address(r.Address), chainblob.SignaturesOptions{
		Before: chainblob.Signature(r.Before),
		Limit:  r.Limit,
	}, chainblob.ReadOption{Freshness: chainblob.Freshness(r.Tier)})
	if err != nil {
		return nil, err
	}
	result := make([]signatureInfo, 0, len(infos))
	for _, info := range infos {
		result = append(result, signatureInfo{
			Signature: string(info.Signature),
			Slot:      info.Slot,
			BlockTime: fromTime(info.BlockTime),
			Failed:    info.Failed,
		})
	}
	return result, nil
}

func (s *Server) sendTransaction(ctx context.Context, req *wrapperspb.BytesValue) (interface{}, error) {
	var r sendTransactionRequest
	if err := unpack(req, &r); err != nil {
		return nil, err
	}
	ixs, err := ledger.UnmarshalInstructions(r.Instructions)
	if err != nil {
		return nil, err
	}
	sig, err := s.l.SendTransaction(ctx, chainblob.Address(r.Payer), ixs)
	if err != nil {
		return nil, err
	}
	return sendTransactionResponse{Signature: string(sig)}, nil
}
