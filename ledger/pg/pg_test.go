package pg

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/bobg/chainblob/ledger"
	"github.com/bobg/chainblob/testutil"
)

func TestLedger(t *testing.T) {
	withLedger(t, func(ctx context.Context, l *ledger.Devnet) {
		testutil.ReadWrite(ctx, t, l, l.ProgramID())
	})
}

func TestNames(t *testing.T) {
	withLedger(t, func(ctx context.Context, l *ledger.Devnet) {
		testutil.Names(ctx, t, l, l.ProgramID())
	})
}

func TestChannel(t *testing.T) {
	withLedger(t, func(ctx context.Context, l *ledger.Devnet) {
		testutil.Channel(ctx, t, l, l.ProgramID())
	})
}

const connVar = "CHAINBLOB_PG_TESTING_CONN"

// withLedger runs f against a ledger in a freshly emptied database.
func withLedger(t *testing.T, f func(context.Context, *ledger.Devnet)) {
	connstr := os.Getenv(connVar)
	if connstr == "" {
		t.Skipf("to run %s, set %s to a valid Postgresql connection string", t.Name(), connVar)
	}

	db, err := sql.Open("postgres", connstr)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS tx_addresses, transactions, accounts`); err != nil {
		t.Fatal(err)
	}

	l, err := New(ctx, db, "")
	if err != nil {
		t.Fatal(err)
	}

	f(ctx, l)
}
