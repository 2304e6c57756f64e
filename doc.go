// Package chainblob stores arbitrarily large payloads in a ledger's transaction history.
//
// A ledger (such as a blockchain)
// will accept a transaction only up to a modest size,
// and it offers no cheap storage beyond small fixed-size accounts.
// But it keeps every transaction it has ever confirmed,
// and anyone can fetch them again by signature.
// So a payload is cut into chunks
// (see Split)
// and each chunk rides in its own transaction.
//
// There are three ways to lay the chunks out.
// A payload small enough is simply embedded in its metadata record:
// that's "inline."
// A handful of chunks form a "linked list":
// each chunk's transaction names the signature of the one before,
// the first naming the sentinel Genesis,
// so the signature of the last is enough to walk back to the start.
// Many chunks go into a "session":
// an account derived from the writer and a sequence number,
// against which every chunk is posted independently with its own index.
// Session chunks can be written and read concurrently,
// and are put back in order by index.
//
// The package planner picks the layout for each payload
// and drives the engines in packages linked and session.
// What a reader needs to get the payload back is a Path,
// whose shape alone says which layout was used
// (see Path.Kind).
//
// Every ledger call is throttled and bounded by a pool.Pool,
// and every read of one payload goes to the RPC tier
// that the freshness package picks from the payload's age.
//
// Writes to a channel shared by two parties
// are gated by the connection state evaluated in package access.
//
// Implementations of Ledger live under the ledger directory:
// development ledgers backed by memory, SQLite, or PostgreSQL
// that run the chainblob program themselves,
// a JSON-RPC client for a real node,
// a gRPC bridge,
// and decorators for caching, logging, metrics, and tier routing.
package chainblob
