package jsonrpc

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"

	"github.com/bobg/chainblob"
)

func publicKey(addr chainblob.Address) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(string(addr))
	return key, errors.Wrapf(err, "parsing address %s", addr)
}

func signature(sig chainblob.Signature) (solana.Signature, error) {
	s, err := solana.SignatureFromBase58(string(sig))
	return s, errors.Wrapf(err, "parsing signature %s", sig)
}

func address(key solana.PublicKey) chainblob.Address {
	return chainblob.Address(key.String())
}

func blockTime(t *solana.UnixTimeSeconds) time.Time {
	if t == nil {
		return time.Time{}
	}
	return time.Unix(int64(*t), 0).UTC()
}

func fromAccount(addr chainblob.Address, v *rpc.Account) *chainblob.Account {
	acct := &chainblob.Account{Address: addr, Owner: address(v.Owner)}
	if v.Data != nil {
		if data := v.Data.GetBinary(); len(data) > 0 {
			acct.Data = data
		}
	}
	return acct
}

// fromTransaction resolves the compact message form:
// instructions name accounts by index into the static keys
// followed by any keys loaded from lookup tables.
func fromTransaction(sig chainblob.Signature, r *rpc.GetTransactionResult) (*chainblob.Transaction, error) {
	if r.Transaction == nil {
		return nil, errors.Errorf("transaction %s has no body", sig)
	}
	stx, err := r.Transaction.GetTransaction()
	if err != nil {
		return nil, errors.Wrapf(err, "decoding transaction %s", sig)
	}

	var (
		msg     = stx.Message
		h       = msg.Header
		nSigned = int(h.NumRequiredSignatures)
		nStatic = len(msg.AccountKeys)
		metas   = make([]chainblob.AccountMeta, 0, nStatic)
	)
	for i, key := range msg.AccountKeys {
		signer := i < nSigned
		var writable bool
		if signer {
			writable = i < nSigned-int(h.NumReadonlySignedAccounts)
		} else {
			writable = i < nStatic-int(h.NumReadonlyUnsignedAccounts)
		}
		metas = append(metas, chainblob.AccountMeta{Key: address(key), Signer: signer, Writable: writable})
	}

	tx := &chainblob.Transaction{
		Signature: sig,
		Slot:      r.Slot,
		BlockTime: blockTime(r.BlockTime),
	}
	if r.Meta != nil {
		for _, key := range r.Meta.LoadedAddresses.Writable {
			metas = append(metas, chainblob.AccountMeta{Key: address(key), Writable: true})
		}
		for _, key := range r.Meta.LoadedAddresses.ReadOnly {
			metas = append(metas, chainblob.AccountMeta{Key: address(key)})
		}
		tx.Failed = r.Meta.Err != nil
	}
	if len(metas) > 0 {
		tx.Payer = metas[0].Key
	}

	at := func(i uint16) (chainblob.AccountMeta, error) {
		if int(i) >= len(metas) {
			return chainblob.AccountMeta{}, errors.Errorf("account index %d out of range in transaction %s", i, sig)
		}
		return metas[i], nil
	}

	for _, cix := range msg.Instructions {
		prog, err := at(cix.ProgramIDIndex)
		if err != nil {
			return nil, err
		}
		ix := chainblob.Instruction{ProgramID: prog.Key}
		if len(cix.Data) > 0 {
			ix.Data = []byte(cix.Data)
		}
		for _, i := range cix.Accounts {
			m, err := at(i)
			if err != nil {
				return nil, err
			}
			ix.Accounts = append(ix.Accounts, m)
		}
		tx.Instructions = append(tx.Instructions, ix)
	}
	return tx, nil
}
