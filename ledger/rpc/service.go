// Package rpc serves a chainblob.Ledger over gRPC and implements a client for it.
//
// Requests and responses travel as msgpack documents
// inside google.protobuf.BytesValue messages.
package rpc

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/ledger"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "chainblob.rpc.Ledger"

const (
	methodGetAccountInfo          = "GetAccountInfo"
	methodGetTransaction          = "GetTransaction"
	methodGetSignaturesForAddress = "GetSignaturesForAddress"
	methodSendTransaction         = "SendTransaction"
)

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type getAccountInfoRequest struct {
	Address string `msgpack:"a"`
	Tier    string `msgpack:"t"`
}

type account struct {
	Address string `msgpack:"a"`
	Owner   string `msgpack:"o"`
	Data    []byte `msgpack:"d"`
}

type getTransactionRequest struct {
	Signature string `msgpack:"s"`
	Tier      string `msgpack:"t"`
}

type transaction struct {
	Signature    string `msgpack:"s"`
	Slot         uint64 `msgpack:"n"`
	BlockTime    int64  `msgpack:"b"` // unix nanoseconds, 0 if unknown
	Payer        string `msgpack:"p"`
	Instructions []byte `msgpack:"i"` // see ledger.MarshalInstructions
	Failed       bool   `msgpack:"f"`
}

type getSignaturesRequest struct {
	Address string `msgpack:"a"`
	Before  string `msgpack:"b"`
	Limit   int    `msgpack:"l"`
	Tier    string `msgpack:"t"`
}

type signatureInfo struct {
	Signature string `msgpack:"s"`
	Slot      uint64 `msgpack:"n"`
	BlockTime int64  `msgpack:"b"`
	Failed    bool   `msgpack:"f"`
}

type sendTransactionRequest struct {
	Payer        string `msgpack:"p"`
	Instructions []byte `msgpack:"i"`
}

type sendTransactionResponse struct {
	Signature string `msgpack:"s"`
}

func pack(v interface{}) (*wrapperspb.BytesValue, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling message")
	}
	return wrapperspb.Bytes(b), nil
}

func unpack(msg *wrapperspb.BytesValue, v interface{}) error {
	return errors.Wrap(msgpack.Unmarshal(msg.GetValue(), v), "unmarshaling message")
}

func fromTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func toTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func fromTx(tx *chainblob.Transaction) (transaction, error) {
	ixs, err := ledger.MarshalInstructions(tx.Instructions)
	if err != nil {
		return transaction{}, err
	}
	return transaction{
		Signature:    string(tx.Signature),
		Slot:         tx.Slot,
		BlockTime:    fromTime(tx.BlockTime),
		Payer:        string(tx.Payer),
		Instructions: ixs,
		Failed:       tx.Failed,
	}, nil
}

func (t transaction) toTx() (*chainblob.Transaction, error) {
	ixs, err := ledger.UnmarshalInstructions(t.Instructions)
	if err != nil {
		return nil, err
	}
	return &chainblob.Transaction{
		Signature:    chainblob.Signature(t.Signature),
		Slot:         t.Slot,
		BlockTime:    toTime(t.BlockTime),
		Payer:        chainblob.Address(t.Payer),
		Instructions: ixs,
		Failed:       t.Failed,
	}, nil
}

// handler is the server side of the service.
// It is the HandlerType of serviceDesc.
type handler interface {
	handle(ctx context.Context, method string, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

func unaryHandler(method string) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(wrapperspb.BytesValue)
		if err := dec(in); err != nil {
			return nil, err
		}
		h := srv.(handler)
		if interceptor == nil {
			return h.handle(ctx, method, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(method),
		}
		return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return h.handle(ctx, method, req.(*wrapperspb.BytesValue))
		})
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*handler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: methodGetAccountInfo, Handler: unaryHandler(methodGetAccountInfo)},
		{MethodName: methodGetTransaction, Handler: unaryHandler(methodGetTransaction)},
		{MethodName: methodGetSignaturesForAddress, Handler: unaryHandler(methodGetSignaturesForAddress)},
		{MethodName: methodSendTransaction, Handler: unaryHandler(methodSendTransaction)},
	},
	Metadata: "chainblob/ledger/rpc",
}

// Register adds srv to the gRPC server s.
func Register(s grpc.ServiceRegistrar, srv *Server) {
	s.RegisterService(&serviceDesc, srv)
}
