package racer

import (
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/dex"
)

// Signer is the read-only identity every submission is paid and signed by.
type Signer interface {
	PublicKey() solana.PublicKey
	BuildSigned(instructions []solana.Instruction, blockhash solana.Hash) (*solana.Transaction, string, error)
}

// Order is one reaction ready for delivery.
type Order struct {
	Instruction solana.Instruction
	TipSOL      float64
	Blockhash   solana.Hash
	Nonce       uint64
	IsBuy       bool
	Pool        string

	// Origin is the signature of the observed transaction that triggered the order.
	Origin string
}

// effectiveTip raises the requested tip to the provider floor.
func effectiveTip(p Provider, tip float64) float64 {
	return math.Max(tip, p.MinTip())
}

// buildFor lays out compute budget, race marker, swap and tip transfer for p,
// and returns the base64 wire form. Providers without a tip account get no
// transfer.
func buildFor(signer Signer, p Provider, o Order, cuPrice uint64) (string, error) {
	payer := signer.PublicKey()

	marker, err := dex.NewRaceMarkerIx(payer, o.Nonce)
	if err != nil {
		return "", fmt.Errorf("race marker: %w", err)
	}

	ixs := []solana.Instruction{
		dex.NewSetComputeUnitPriceIx(cuPrice),
		marker,
		o.Instruction,
	}
	if tipTo := p.TipAccount(); !tipTo.IsZero() {
		ixs = append(ixs, dex.NewSystemTransferIx(payer, tipTo, dex.Lamports(effectiveTip(p, o.TipSOL))))
	}

	_, encoded, err := signer.BuildSigned(ixs, o.Blockhash)
	if err != nil {
		return "", fmt.Errorf("build %s transaction: %w", p.Name(), err)
	}
	return encoded, nil
}
