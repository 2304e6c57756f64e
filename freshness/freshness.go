// Package freshness decides which RPC tier serves the reads of one payload.
//
// Content that landed within the last day may not have reached the indexing tiers yet,
// so it is read from a tier watching just-landed blocks.
// Session content older than a week is read from the historical tier.
// The decision is made once per payload, before any read is issued,
// and the resulting chainblob.ReadOption accompanies every call of that reconstruction.
package freshness

import (
	"time"

	"github.com/bobg/chainblob"
)

// Tier boundaries.
const (
	FreshAge  = 24 * time.Hour
	RecentAge = 7 * 24 * time.Hour
)

// Classify picks the tier for content recorded at recordedAt under path,
// as seen at time now.
//
// For an inline path or a linked-list tail only two tiers apply:
// fresh up to FreshAge, recent after.
// For a session address three apply:
// fresh up to FreshAge, recent up to RecentAge, archive after.
//
// A zero recordedAt means the age is unknown.
// Then the slowest applicable tier is used:
// recent for two-tier paths, archive for sessions.
func Classify(path chainblob.Path, recordedAt, now time.Time) chainblob.Freshness {
	threeTier := path.Kind() == chainblob.PathAddress

	if recordedAt.IsZero() {
		if threeTier {
			return chainblob.Archive
		}
		return chainblob.Recent
	}

	age := now.Sub(recordedAt)
	switch {
	case age <= FreshAge:
		return chainblob.Fresh
	case !threeTier || age <= RecentAge:
		return chainblob.Recent
	default:
		return chainblob.Archive
	}
}

// Router classifies paths against a clock.
type Router struct {
	// Now returns the current time.
	// If nil, time.Now is used.
	Now func() time.Time
}

// Option returns the ReadOption for reading the content at path recorded at recordedAt.
func (r Router) Option(path chainblob.Path, recordedAt time.Time) chainblob.ReadOption {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return chainblob.ReadOption{Freshness: Classify(path, recordedAt, now())}
}
