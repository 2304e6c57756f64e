package planner

import "github.com/bobg/chainblob"

// Strategy is the way a payload is laid out on chain.
type Strategy string

// The strategies.
const (
	// Inline embeds the payload in its metadata record.
	Inline Strategy = "inline"

	// LinkedList writes one send_code transaction per chunk, each naming its predecessor.
	LinkedList Strategy = "linked_list"

	// Session writes independent post_chunk transactions against a session account.
	Session Strategy = "session"
)

// Default limits.
const (
	DefaultChunkSize        = chainblob.DefaultChunkSize
	DefaultInlineBudget     = 850
	DefaultSessionThreshold = 10
)

// Limits are the size thresholds that drive Choose.
// Zero fields take their defaults.
type Limits struct {
	// ChunkSize is the maximum number of bytes per chunk.
	ChunkSize int `yaml:"chunk_size"`

	// InlineBudget is the maximum size in bytes of an inline metadata record.
	InlineBudget int `yaml:"inline_budget"`

	// SessionThreshold is the chunk count at which sessions replace linked lists.
	SessionThreshold int `yaml:"session_threshold"`
}

// DefaultLimits returns Limits{850, 850, 10}.
func DefaultLimits() Limits {
	return Limits{
		ChunkSize:        DefaultChunkSize,
		InlineBudget:     DefaultInlineBudget,
		SessionThreshold: DefaultSessionThreshold,
	}
}

// WithDefaults fills in zero fields of l.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	if l.ChunkSize <= 0 {
		l.ChunkSize = d.ChunkSize
	}
	if l.InlineBudget <= 0 {
		l.InlineBudget = d.InlineBudget
	}
	if l.SessionThreshold <= 0 {
		l.SessionThreshold = d.SessionThreshold
	}
	return l
}

// Choose picks the strategy for a payload of chunkCount chunks
// whose inline metadata record would take inlineRecordSize bytes.
// It looks at nothing else.
//
// An empty payload is always Inline.
// Otherwise a payload of one chunk whose inline record fits the budget is Inline.
// Fewer than SessionThreshold chunks is LinkedList,
// and anything more is Session.
func Choose(chunkCount, inlineRecordSize int, lim Limits) Strategy {
	lim = lim.WithDefaults()
	switch {
	case chunkCount == 0:
		return Inline
	case chunkCount <= 1 && inlineRecordSize <= lim.InlineBudget:
		return Inline
	case chunkCount < lim.SessionThreshold:
		return LinkedList
	default:
		return Session
	}
}
