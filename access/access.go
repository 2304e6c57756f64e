// Package access evaluates whether a signer may write to a shared two-party channel.
//
// A channel is governed by a connection account holding a ConnectionMeta.
// Its lifecycle is owned by the on-chain program:
//
//	pending -> approved
//	pending -> blocked
//	approved -> blocked
//	blocked -> approved
//
// This package never changes a connection.
// It reads one and decides, before a write transaction is built,
// whether the chain would accept it.
package access

import "github.com/bobg/chainblob"

// Status is the lifecycle state of a connection.
type Status uint8

// Connection states.
// Any other value is invalid.
const (
	Pending Status = iota
	Approved
	Blocked
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Approved:
		return "approved"
	case Blocked:
		return "blocked"
	}
	return "invalid"
}

// Role identifies one side of a connection.
type Role uint8

// Roles.
const (
	RoleA Role = iota
	RoleB
	RoleNone
)

// ConnectionMeta is the state of a connection account.
type ConnectionMeta struct {
	PartyA    chainblob.Address `msgpack:"party_a"`
	PartyB    chainblob.Address `msgpack:"party_b"`
	Status    Status            `msgpack:"status"`
	Requester Role              `msgpack:"requester"`
	Blocker   Role              `msgpack:"blocker"`
}

// RoleOf tells which side of the connection signer is on.
// It returns RoleNone for a non-participant.
func (m ConnectionMeta) RoleOf(signer chainblob.Address) Role {
	switch signer {
	case m.PartyA:
		return RoleA
	case m.PartyB:
		return RoleB
	}
	return RoleNone
}

// Decision is the outcome of Evaluate.
// A denial is a result to show the user, not an error.
type Decision struct {
	Allowed bool
	Message string
}

// Denial messages.
const (
	MsgNotParticipant  = "not a participant in this connection"
	MsgAllowInSettings = "the other party requested this connection; allow it in settings before writing"
	MsgYouMustAllow    = "you blocked this connection; you must allow it before writing"
	MsgAskToUnblock    = "the other party blocked this connection; ask them to unblock it"
	MsgInvalidStatus   = "invalid connection status"
)

// Evaluate decides whether signer may write to the channel governed by meta.
func Evaluate(meta ConnectionMeta, signer chainblob.Address) Decision {
	role := meta.RoleOf(signer)
	if role == RoleNone {
		return Decision{Message: MsgNotParticipant}
	}

	switch meta.Status {
	case Approved:
		return Decision{Allowed: true}

	case Pending:
		if role == meta.Requester {
			return Decision{Allowed: true}
		}
		return Decision{Message: MsgAllowInSettings}

	case Blocked:
		if role == meta.Blocker {
			return Decision{Message: MsgYouMustAllow}
		}
		return Decision{Message: MsgAskToUnblock}
	}

	return Decision{Message: MsgInvalidStatus}
}

// CanTransition tells whether the program permits a connection to move from one status to another.
func CanTransition(from, to Status) bool {
	switch from {
	case Pending:
		return to == Approved || to == Blocked
	case Approved:
		return to == Blocked
	case Blocked:
		return to == Approved
	}
	return false
}
