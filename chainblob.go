package chainblob

import (
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

type (
	// Address is a base58-encoded account address.
	Address string

	// Signature is a base58-encoded transaction signature.
	Signature string

	// Path is the reference left in a metadata record
	// that lets a reader resume reconstruction of a payload.
	// Its shape, not a tag, tells what it refers to.
	// See Path.Kind.
	Path string
)

// Genesis is the before_tx value of the first node in a linked list.
const Genesis = "Genesis"

// SignatureMinLen is the shortest Path treated as a transaction signature.
// Base58 signatures (64 bytes) encode to 86-88 characters
// and account addresses (32 bytes) to 32-44,
// so the boundary sits between the two.
// An address encoding of unusual length would be misclassified.
const SignatureMinLen = 80

// PathKind is the shape of a Path.
type PathKind int

const (
	// PathInline means the content is embedded in the metadata record and there is nothing to fetch.
	PathInline PathKind = iota

	// PathSignature means the path is the tail signature of a linked list.
	PathSignature

	// PathAddress means the path is the address of a session account.
	PathAddress
)

func (k PathKind) String() string {
	switch k {
	case PathInline:
		return "inline"
	case PathSignature:
		return "signature"
	case PathAddress:
		return "address"
	}
	return "unknown"
}

// Kind classifies p by its length.
func (p Path) Kind() PathKind {
	switch {
	case p == "":
		return PathInline
	case len(p) >= SignatureMinLen:
		return PathSignature
	default:
		return PathAddress
	}
}

// Signature returns p as a transaction signature.
func (p Path) Signature() Signature { return Signature(p) }

// Address returns p as an account address.
func (p Path) Address() Address { return Address(p) }

// Bytes decodes the address from base58.
func (a Address) Bytes() ([]byte, error) {
	b, err := base58.Decode(string(a))
	return b, errors.Wrapf(err, "decoding address %s", a)
}

// AddressFromBytes base58-encodes b as an Address.
func AddressFromBytes(b []byte) Address {
	return Address(base58.Encode(b))
}

// SignatureFromBytes base58-encodes b as a Signature.
func SignatureFromBytes(b []byte) Signature {
	return Signature(base58.Encode(b))
}

// Freshness selects the RPC tier that serves a read.
type Freshness string

const (
	// Fresh routes to a low-latency tier that sees just-landed blocks.
	Fresh Freshness = "fresh"

	// Recent routes to a general-purpose indexing tier.
	Recent Freshness = "recent"

	// Archive routes to the default historical tier.
	Archive Freshness = "archive"
)

// ReadOption accompanies every read issued while reconstructing one payload.
type ReadOption struct {
	Freshness Freshness
}

// Tier returns the freshness label, defaulting to Archive.
func (o ReadOption) Tier() Freshness {
	if o.Freshness == "" {
		return Archive
	}
	return o.Freshness
}

// AccountMeta is one account reference of an instruction.
type AccountMeta struct {
	Key      Address
	Signer   bool
	Writable bool
}

// Instruction is a single program invocation inside a transaction.
type Instruction struct {
	ProgramID Address
	Accounts  []AccountMeta
	Data      []byte
}

// Transaction is a confirmed transaction as returned by a ledger.
type Transaction struct {
	Signature    Signature
	Slot         uint64
	BlockTime    time.Time // zero if the ledger did not report one
	Payer        Address
	Instructions []Instruction

	// Failed marks a transaction the ledger recorded but whose execution failed.
	// Its instructions took no effect.
	Failed bool
}

// Touches tells whether any instruction of tx references addr.
func (tx *Transaction) Touches(addr Address) bool {
	for _, ix := range tx.Instructions {
		if ix.ProgramID == addr {
			return true
		}
		for _, a := range ix.Accounts {
			if a.Key == addr {
				return true
			}
		}
	}
	return false
}

// Account is the state of an on-chain account.
type Account struct {
	Address Address
	Owner   Address
	Data    []byte
}

// SignatureInfo is one entry of a GetSignaturesForAddress page.
type SignatureInfo struct {
	Signature Signature
	Slot      uint64
	BlockTime time.Time
	Failed    bool // see Transaction.Failed
}

// SignaturesOptions controls pagination in GetSignaturesForAddress.
// Signatures are returned newest first,
// starting just before Before (or at the newest, if Before is empty).
type SignaturesOptions struct {
	Before Signature
	Limit  int
}
