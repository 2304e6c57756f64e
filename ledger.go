package chainblob

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Getter is a read-only Ledger (qv).
type Getter interface {
	// GetAccountInfo gets the current state of an account.
	// It returns ErrNotFound if the account does not exist.
	GetAccountInfo(context.Context, Address, ReadOption) (*Account, error)

	// GetTransaction gets a confirmed transaction by its signature.
	// It returns ErrNotFound if no such transaction is known.
	GetTransaction(context.Context, Signature, ReadOption) (*Transaction, error)

	// GetSignaturesForAddress returns a page of signatures
	// of transactions that referenced the given address,
	// newest first.
	// A page shorter than opts.Limit means there are no more.
	GetSignaturesForAddress(context.Context, Address, SignaturesOptions, ReadOption) ([]SignatureInfo, error)
}

// Ledger is the RPC surface of a blockchain node.
// Payloads are stored as instructions inside its transactions.
type Ledger interface {
	Getter

	// SendTransaction submits a transaction paid for by payer
	// and waits for it to be confirmed.
	// It returns the new transaction's signature.
	SendTransaction(ctx context.Context, payer Address, ixs []Instruction) (Signature, error)
}

var (
	// ErrNotFound is the error returned
	// when a Getter tries to access a non-existent account or transaction.
	ErrNotFound = errors.New("not found")

	// ErrDecodeMiss means a transaction does not contain the expected instruction.
	ErrDecodeMiss = errors.New("expected instruction not found")

	// ErrLoopDetected means a linked list revisited a signature.
	ErrLoopDetected = errors.New("loop detected in linked list")

	// ErrMissingChunk means a session is missing a chunk index.
	ErrMissingChunk = errors.New("missing chunk")

	// ErrFailed means a transaction was recorded but failed to execute.
	ErrFailed = errors.New("transaction failed")
)

// LoopError reports the signature at which a linked-list traversal looped.
type LoopError struct {
	Signature Signature
	Steps     int
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("%s: signature %s revisited after %d steps", ErrLoopDetected, e.Signature, e.Steps)
}

// Is makes errors.Is(err, ErrLoopDetected) true for a *LoopError.
func (e *LoopError) Is(target error) bool {
	return target == ErrLoopDetected
}
