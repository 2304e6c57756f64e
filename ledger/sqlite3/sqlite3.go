// Package sqlite3 implements a development ledger stored in SQLite.
package sqlite3

import (
	"context"
	"database/sql"
	stderrs "errors"
	"math"
	"time"

	"github.com/bobg/sqlutil"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/chainblob"
	"github.com/bobg/chainblob/ledger"
)

var _ ledger.Backend = &Backend{}

// Backend is a Sqlite-based ledger.Backend.
type Backend struct {
	db *sql.DB
}

// Schema is the SQL that NewBackend executes.
// It creates the `transactions`, `tx_addresses`, and `accounts` tables if they do not exist.
// (If they do exist, they must have the columns, constraints, and indexing described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS transactions (
  signature TEXT PRIMARY KEY NOT NULL,
  slot INTEGER NOT NULL UNIQUE,
  block_time INTEGER NOT NULL,
  payer TEXT NOT NULL,
  instructions BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS tx_addresses (
  address TEXT NOT NULL,
  slot INTEGER NOT NULL,
  signature TEXT NOT NULL,
  block_time INTEGER NOT NULL,
  PRIMARY KEY (address, slot)
);

CREATE TABLE IF NOT EXISTS accounts (
  address TEXT PRIMARY KEY NOT NULL,
  owner TEXT NOT NULL,
  data BLOB NOT NULL
);
`

// NewBackend produces a new Backend using `db` for storage.
// It expects to create its tables,
// or for those tables already to exist with the correct schema.
// (See variable Schema.)
func NewBackend(ctx context.Context, db *sql.DB) (*Backend, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Backend{db: db}, errors.Wrap(err, "creating schema")
}

// New produces a development ledger stored in db,
// running the program at programID.
func New(ctx context.Context, db *sql.DB, programID chainblob.Address) (*ledger.Devnet, error) {
	b, err := NewBackend(ctx, db)
	if err != nil {
		return nil, err
	}
	return ledger.NewDevnet(b, programID), nil
}

// GetAccount implements ledger.Backend.GetAccount.
func (b *Backend) GetAccount(ctx context.Context, addr chainblob.Address) (*chainblob.Account, error) {
	const q = `SELECT owner, data FROM accounts WHERE address = $1`

	acct := &chainblob.Account{Address: addr}
	err := b.db.QueryRowContext(ctx, q, addr).Scan(&acct.Owner, &acct.Data)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, chainblob.ErrNotFound
	}
	return acct, errors.Wrapf(err, "getting account %s", addr)
}

// GetTransaction implements ledger.Backend.GetTransaction.
func (b *Backend) GetTransaction(ctx context.Context, sig chainblob.Signature) (*chainblob.Transaction, error) {
	const q = `SELECT slot, block_time, payer, instructions FROM transactions WHERE signature = $1`

	var (
		slot, blockTime int64
		payer           string
		ixs             []byte
	)
	err := b.db.QueryRowContext(ctx, q, sig).Scan(&slot, &blockTime, &payer, &ixs)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, chainblob.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting transaction %s", sig)
	}

	instructions, err := ledger.UnmarshalInstructions(ixs)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding transaction %s", sig)
	}
	return &chainblob.Transaction{
		Signature:    sig,
		Slot:         uint64(slot),
		BlockTime:    time.Unix(blockTime, 0).UTC(),
		Payer:        chainblob.Address(payer),
		Instructions: instructions,
	}, nil
}

// Signatures implements ledger.Backend.Signatures.
func (b *Backend) Signatures(ctx context.Context, addr chainblob.Address, beforeSlot uint64, limit int) ([]chainblob.SignatureInfo, error) {
	const q = `SELECT signature, slot, block_time FROM tx_addresses WHERE address = $1 AND slot < $2 ORDER BY slot DESC LIMIT $3`

	var before int64 = math.MaxInt64
	if beforeSlot > 0 {
		before = int64(beforeSlot)
	}

	var result []chainblob.SignatureInfo
	err := sqlutil.ForQueryRows(ctx, b.db, q, addr, before, limit, func(sig string, slot, blockTime int64) {
		result = append(result, chainblob.SignatureInfo{
			Signature: chainblob.Signature(sig),
			Slot:      uint64(slot),
			BlockTime: time.Unix(blockTime, 0).UTC(),
		})
	})
	return result, errors.Wrapf(err, "listing signatures of %s", addr)
}

// LastSlot implements ledger.Backend.LastSlot.
func (b *Backend) LastSlot(ctx context.Context) (uint64, error) {
	const q = `SELECT COALESCE(MAX(slot), 0) FROM transactions`

	var slot int64
	err := b.db.QueryRowContext(ctx, q).Scan(&slot)
	return uint64(slot), errors.Wrap(err, "getting last slot")
}

// Commit implements ledger.Backend.Commit.
func (b *Backend) Commit(ctx context.Context, tx *chainblob.Transaction, addrs []chainblob.Address, accounts []*chainblob.Account) error {
	ixs, err := ledger.MarshalInstructions(tx.Instructions)
	if err != nil {
		return err
	}

	dbtx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning db transaction")
	}
	defer dbtx.Rollback()

	var (
		slot      = int64(tx.Slot)
		blockTime = tx.BlockTime.Unix()
	)

	const q1 = `INSERT INTO transactions (signature, slot, block_time, payer, instructions) VALUES ($1, $2, $3, $4, $5)`
	if _, err := dbtx.ExecContext(ctx, q1, tx.Signature, slot, blockTime, tx.Payer, ixs); err != nil {
		return errors.Wrap(err, "inserting transaction")
	}

	const q2 = `INSERT INTO tx_addresses (address, slot, signature, block_time) VALUES ($1, $2, $3, $4)`
	for _, addr := range addrs {
		if _, err := dbtx.ExecContext(ctx, q2, addr, slot, tx.Signature, blockTime); err != nil {
			return errors.Wrapf(err, "indexing under %s", addr)
		}
	}

	const q3 = `INSERT INTO accounts (address, owner, data) VALUES ($1, $2, $3)
		ON CONFLICT (address) DO UPDATE SET owner = excluded.owner, data = excluded.data`
	for _, acct := range accounts {
		if _, err := dbtx.ExecContext(ctx, q3, acct.Address, acct.Owner, acct.Data); err != nil {
			return errors.Wrapf(err, "writing account %s", acct.Address)
		}
	}

	return errors.Wrap(dbtx.Commit(), "committing db transaction")
}

func init() {
	ledger.Register("sqlite3", func(ctx context.Context, conf map[string]interface{}) (chainblob.Ledger, error) {
		conn, ok := ledger.ConfString(conf, "conn")
		if !ok {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("sqlite3", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		programID, _ := ledger.ConfString(conf, "program_id")
		return New(ctx, db, chainblob.Address(programID))
	})
}
