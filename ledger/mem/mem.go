// Package mem implements an in-memory development ledger.
package mem

import (
	"context"
	"sort"
	"sync"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/ledger"
)

var _ ledger.Backend = &Backend{}

// Backend is a memory-based ledger.Backend.
type Backend struct {
	mu       sync.Mutex
	txs      map[chainblob.Signature]*chainblob.Transaction
	accounts map[chainblob.Address]*chainblob.Account
	index    map[chainblob.Address][]chainblob.SignatureInfo // ascending by slot
	last     uint64
}

// NewBackend produces an empty Backend.
func NewBackend() *Backend {
	return &Backend{
		txs:      make(map[chainblob.Signature]*chainblob.Transaction),
		accounts: make(map[chainblob.Address]*chainblob.Account),
		index:    make(map[chainblob.Address][]chainblob.SignatureInfo),
	}
}

// New produces an empty in-memory ledger running the program at programID.
func New(programID chainblob.Address) *ledger.Devnet {
	return ledger.NewDevnet(NewBackend(), programID)
}

// GetAccount implements ledger.Backend.GetAccount.
func (b *Backend) GetAccount(_ context.Context, addr chainblob.Address) (*chainblob.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acct, ok := b.accounts[addr]
	if !ok {
		return nil, chainblob.ErrNotFound
	}
	cp := *acct
	return &cp, nil
}

// GetTransaction implements ledger.Backend.GetTransaction.
func (b *Backend) GetTransaction(_ context.Context, sig chainblob.Signature) (*chainblob.Transaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tx, ok := b.txs[sig]
	if !ok {
		return nil, chainblob.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

// Signatures implements ledger.Backend.Signatures.
func (b *Backend) Signatures(_ context.Context, addr chainblob.Address, beforeSlot uint64, limit int) ([]chainblob.SignatureInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	infos := b.index[addr]
	end := len(infos)
	if beforeSlot > 0 {
		end = sort.Search(len(infos), func(n int) bool {
			return infos[n].Slot >= beforeSlot
		})
	}

	var result []chainblob.SignatureInfo
	for i := end - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, infos[i])
	}
	return result, nil
}

// LastSlot implements ledger.Backend.LastSlot.
func (b *Backend) LastSlot(context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, nil
}

// Commit implements ledger.Backend.Commit.
func (b *Backend) Commit(_ context.Context, tx *chainblob.Transaction, addrs []chainblob.Address, accounts []*chainblob.Account) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := *tx
	b.txs[tx.Signature] = &cp

	info := chainblob.SignatureInfo{Signature: tx.Signature, Slot: tx.Slot, BlockTime: tx.BlockTime}
	for _, a := range addrs {
		b.index[a] = append(b.index[a], info)
	}
	for _, acct := range accounts {
		acctCopy := *acct
		b.accounts[acct.Address] = &acctCopy
	}
	if tx.Slot > b.last {
		b.last = tx.Slot
	}
	return nil
}

func init() {
	ledger.Register("mem", func(_ context.Context, conf map[string]interface{}) (chainblob.Ledger, error) {
		programID, _ := ledger.ConfString(conf, "program_id")
		return New(chainblob.Address(programID)), nil
	})
}
