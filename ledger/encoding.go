package ledger

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"

	"github.com/bobg/chainblob"
)

type storedAccountMeta struct {
	Key      string `msgpack:"k"`
	Signer   bool   `msgpack:"s"`
	Writable bool   `msgpack:"w"`
}

type storedInstruction struct {
	ProgramID string              `msgpack:"p"`
	Accounts  []storedAccountMeta `msgpack:"a"`
	Data      []byte              `msgpack:"d"`
}

// MarshalInstructions serializes ixs for storage in a database column.
func MarshalInstructions(ixs []chainblob.Instruction) ([]byte, error) {
	stored := make([]storedInstruction, 0, len(ixs))
	for _, ix := range ixs {
		s := storedInstruction{ProgramID: string(ix.ProgramID), Data: ix.Data}
		for _, a := range ix.Accounts {
			s.Accounts = append(s.Accounts, storedAccountMeta{Key: string(a.Key), Signer: a.Signer, Writable: a.Writable})
		}
		stored = append(stored, s)
	}
	b, err := msgpack.Marshal(stored)
	return b, errors.Wrap(err, "marshaling instructions")
}

// UnmarshalInstructions is the inverse of MarshalInstructions.
func UnmarshalInstructions(b []byte) ([]chainblob.Instruction, error) {
	var stored []storedInstruction
	if err := msgpack.Unmarshal(b, &stored); err != nil {
		return nil, errors.Wrap(err, "unmarshaling instructions")
	}
	ixs := make([]chainblob.Instruction, 0, len(stored))
	for _, s := range stored {
		ix := chainblob.Instruction{ProgramID: chainblob.Address(s.ProgramID), Data: s.Data}
		for _, a := range s.Accounts {
			ix.Accounts = append(ix.Accounts, chainblob.AccountMeta{Key: chainblob.Address(a.Key), Signer: a.Signer, Writable: a.Writable})
		}
		ixs = append(ixs, ix)
	}
	return ixs, nil
}
