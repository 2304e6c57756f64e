// Package codec defines the contract of the instruction codec
// and provides Reference, a codec for the chainblob program.
//
// An instruction names its accounts according to a fixed per-instruction Schema.
// An account marked Optional that has no key supplied
// is filled with the program's own address, with Signer and Writable false,
// rather than omitted.
// The ledger runtime reads "program address present" as "optional account absent",
// so this substitution must be preserved exactly.
package codec

import (
	"crypto/sha256"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"

	"github.com/bobg/chainblob"
)

// Codec encodes and decodes program instructions and account state.
type Codec interface {
	// ProgramID is the address of the program whose instructions this codec handles.
	ProgramID() chainblob.Address

	// Encode builds the named instruction.
	// Accounts are looked up by schema name in accounts.
	Encode(name string, accounts map[string]chainblob.Address, args interface{}) (chainblob.Instruction, error)

	// Decode parses ix as the named instruction into out.
	// It returns an error wrapping chainblob.ErrDecodeMiss
	// if ix is not that instruction.
	Decode(ix chainblob.Instruction, name string, out interface{}) error

	// Account returns the key that ix passes for the named schema account.
	// The boolean is false if the account is absent
	// (including an optional account filled with the program address).
	Account(ix chainblob.Instruction, name, account string) (chainblob.Address, bool)

	// EncodeState serializes the state of an account of the given kind.
	EncodeState(kind string, v interface{}) ([]byte, error)

	// DecodeState parses account data of the given kind into out.
	// It returns an error wrapping chainblob.ErrDecodeMiss
	// if data does not hold that kind of state.
	DecodeState(data []byte, kind string, out interface{}) error
}

// AccountSpec describes one account slot of an instruction.
type AccountSpec struct {
	Name     string
	Signer   bool
	Writable bool
	Optional bool
}

// Schema describes the accounts of one instruction, in order.
type Schema struct {
	Name     string
	Accounts []AccountSpec
}

// Instruction names.
const (
	SendCode          = "send_code"
	CreateSession     = "create_session"
	PostChunk         = "post_chunk"
	WriteRecord       = "write_record"
	RequestConnection = "request_connection"
	ApproveConnection = "approve_connection"
	BlockConnection   = "block_connection"
)

// Account state kinds.
const (
	SessionState    = "session"
	ConnectionState = "connection"
)

// Schemas are the instructions of the chainblob program.
var Schemas = []Schema{
	{Name: SendCode, Accounts: []AccountSpec{
		{Name: "user", Signer: true, Writable: true},
	}},
	{Name: CreateSession, Accounts: []AccountSpec{
		{Name: "user", Signer: true, Writable: true},
		{Name: "session", Writable: true},
	}},
	{Name: PostChunk, Accounts: []AccountSpec{
		{Name: "user", Signer: true},
		{Name: "session", Writable: true},
	}},
	{Name: WriteRecord, Accounts: []AccountSpec{
		{Name: "user", Signer: true, Writable: true},
		{Name: "target", Writable: true},
		{Name: "connection", Optional: true},
	}},
	{Name: RequestConnection, Accounts: []AccountSpec{
		{Name: "user", Signer: true, Writable: true},
		{Name: "peer"},
		{Name: "connection", Writable: true},
	}},
	{Name: ApproveConnection, Accounts: []AccountSpec{
		{Name: "user", Signer: true},
		{Name: "connection", Writable: true},
	}},
	{Name: BlockConnection, Accounts: []AccountSpec{
		{Name: "user", Signer: true},
		{Name: "connection", Writable: true},
	}},
}

// SendCodeArgs are the arguments of a linked-list node.
type SendCodeArgs struct {
	Code     []byte `msgpack:"code"`
	BeforeTx string `msgpack:"before_tx"`
}

// CreateSessionArgs are the arguments of create_session.
type CreateSessionArgs struct {
	Sequence    uint64 `msgpack:"sequence"`
	TotalChunks uint32 `msgpack:"total_chunks"`
}

// PostChunkArgs are the arguments of one session chunk.
type PostChunkArgs struct {
	Index uint32 `msgpack:"index"`
	Chunk []byte `msgpack:"chunk"`
}

// WriteRecordArgs carry a serialized metadata record.
type WriteRecordArgs struct {
	Record []byte `msgpack:"record"`
}

// NoArgs is the argument type of instructions that take none.
type NoArgs struct{}

// SessionRecord is the state of a session account.
type SessionRecord struct {
	Writer      chainblob.Address `msgpack:"writer"`
	Sequence    uint64            `msgpack:"sequence"`
	TotalChunks uint32            `msgpack:"total_chunks"`
}

const discriminatorLen = 8

func discriminator(namespace, name string) []byte {
	h := sha256.Sum256([]byte(namespace + ":" + name))
	return h[:discriminatorLen]
}

// Reference is the Codec of the chainblob program.
// Instruction data is an eight-byte discriminator,
// the first eight bytes of sha256("global:<name>"),
// followed by the msgpack encoding of the argument struct.
// Account state is framed the same way with the "account" namespace.
type Reference struct {
	program chainblob.Address
	schemas map[string]Schema
}

var _ Codec = &Reference{}

// New produces a Reference codec for the program at the given address.
func New(program chainblob.Address) *Reference {
	schemas := make(map[string]Schema, len(Schemas))
	for _, s := range Schemas {
		schemas[s.Name] = s
	}
	return &Reference{program: program, schemas: schemas}
}

// ProgramID implements Codec.ProgramID.
func (r *Reference) ProgramID() chainblob.Address { return r.program }

// Encode implements Codec.Encode.
func (r *Reference) Encode(name string, accounts map[string]chainblob.Address, args interface{}) (chainblob.Instruction, error) {
	schema, ok := r.schemas[name]
	if !ok {
		return chainblob.Instruction{}, errors.Errorf("unknown instruction %s", name)
	}

	used := 0
	metas := make([]chainblob.AccountMeta, 0, len(schema.Accounts))
	for _, spec := range schema.Accounts {
		key, ok := accounts[spec.Name]
		if ok {
			used++
		}
		if key == "" {
			if !spec.Optional {
				return chainblob.Instruction{}, errors.Errorf("instruction %s missing account %s", name, spec.Name)
			}
			metas = append(metas, chainblob.AccountMeta{Key: r.program})
			continue
		}
		metas = append(metas, chainblob.AccountMeta{Key: key, Signer: spec.Signer, Writable: spec.Writable})
	}
	if used != len(accounts) {
		return chainblob.Instruction{}, errors.Errorf("instruction %s given accounts not in its schema", name)
	}

	b, err := msgpack.Marshal(args)
	if err != nil {
		return chainblob.Instruction{}, errors.Wrapf(err, "marshaling %s args", name)
	}

	data := append(discriminator("global", name), b...)
	return chainblob.Instruction{ProgramID: r.program, Accounts: metas, Data: data}, nil
}

// Decode implements Codec.Decode.
func (r *Reference) Decode(ix chainblob.Instruction, name string, out interface{}) error {
	if ix.ProgramID != r.program {
		return errors.Wrapf(chainblob.ErrDecodeMiss, "program %s is not %s", ix.ProgramID, r.program)
	}
	return unframe(ix.Data, "global", name, out)
}

// Account implements Codec.Account.
func (r *Reference) Account(ix chainblob.Instruction, name, account string) (chainblob.Address, bool) {
	schema, ok := r.schemas[name]
	if !ok {
		return "", false
	}
	for i, spec := range schema.Accounts {
		if spec.Name != account {
			continue
		}
		if i >= len(ix.Accounts) {
			return "", false
		}
		key := ix.Accounts[i].Key
		if spec.Optional && key == r.program {
			return "", false
		}
		return key, true
	}
	return "", false
}

// EncodeState implements Codec.EncodeState.
func (r *Reference) EncodeState(kind string, v interface{}) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "marshaling %s state", kind)
	}
	return append(discriminator("account", kind), b...), nil
}

// DecodeState implements Codec.DecodeState.
func (r *Reference) DecodeState(data []byte, kind string, out interface{}) error {
	return unframe(data, "account", kind, out)
}

func unframe(data []byte, namespace, name string, out interface{}) error {
	if len(data) < discriminatorLen {
		return errors.Wrapf(chainblob.ErrDecodeMiss, "%d bytes is too short for %s", len(data), name)
	}
	want := discriminator(namespace, name)
	for i := range want {
		if data[i] != want[i] {
			return errors.Wrapf(chainblob.ErrDecodeMiss, "not %s", name)
		}
	}
	if err := msgpack.Unmarshal(data[discriminatorLen:], out); err != nil {
		return errors.Wrapf(chainblob.ErrDecodeMiss, "unmarshaling %s: %s", name, err)
	}
	return nil
}

// Find decodes the first instruction of tx that is the named instruction under c.
// It also returns that instruction.
// If none matches, the error wraps chainblob.ErrDecodeMiss.
func Find(c Codec, tx *chainblob.Transaction, name string, out interface{}) (chainblob.Instruction, error) {
	for _, ix := range tx.Instructions {
		err := c.Decode(ix, name, out)
		if errors.Is(err, chainblob.ErrDecodeMiss) {
			continue
		}
		return ix, err
	}
	return chainblob.Instruction{}, errors.Wrapf(chainblob.ErrDecodeMiss, "transaction %s has no %s instruction", tx.Signature, name)
}
