package models

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Instruction is one top-level instruction of a live transaction.
type Instruction struct {
	Program  solana.PublicKey
	Accounts []solana.PublicKey
	Data     []byte
}

// TokenBalance is a pre- or post-transaction SPL balance entry.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       uint64 // raw units
	UIAmount     float64
	Decimals     int
}

// LiveTransaction is a confirmed transaction as delivered by the feed. It is
// owned by the goroutine handling it and not shared.
type LiveTransaction struct {
	Signature         solana.Signature
	Slot              uint64
	AccountKeys       []solana.PublicKey
	Instructions      []Instruction
	RecentBlockhash   solana.Hash
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
	ReceivedAt        time.Time
}

// Signer returns the fee payer, the first account key.
func (tx *LiveTransaction) Signer() (solana.PublicKey, bool) {
	if len(tx.AccountKeys) == 0 {
		return solana.PublicKey{}, false
	}
	return tx.AccountKeys[0], true
}

// OwnedBy returns the entries whose owner is owner, in order.
func OwnedBy(balances []TokenBalance, owner string) []TokenBalance {
	out := make([]TokenBalance, 0, len(balances))
	for _, b := range balances {
		if b.Owner == owner {
			out = append(out, b)
		}
	}
	return out
}
