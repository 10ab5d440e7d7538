package dex

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// SwapBaseInParams describes a Raydium AMM v4 swap_base_in.
type SwapBaseInParams struct {
	AmountIn     uint64
	MinAmountOut uint64
	Pool         solana.PublicKey
	CoinVault    solana.PublicKey
	PcVault      solana.PublicKey
	InputMint    solana.PublicKey
	OutputMint   solana.PublicKey
	Payer        solana.PublicKey
}

// BuildSwapBaseIn constructs a swap_base_in instruction. The program only
// checks the slots it reads, so the pool id fills the market slots.
func BuildSwapBaseIn(p SwapBaseInParams) (solana.Instruction, error) {
	for name, pk := range map[string]solana.PublicKey{
		"pool": p.Pool, "coin vault": p.CoinVault, "pc vault": p.PcVault, "payer": p.Payer,
	} {
		if pk.IsZero() {
			return nil, fmt.Errorf("%s is zero", name)
		}
	}

	source, err := FindAssociatedTokenAddress(p.Payer, p.InputMint)
	if err != nil {
		return nil, fmt.Errorf("derive source ata: %w", err)
	}
	dest, err := FindAssociatedTokenAddress(p.Payer, p.OutputMint)
	if err != nil {
		return nil, fmt.Errorf("derive destination ata: %w", err)
	}

	// [0] = discriminator (9 = SwapBaseIn)
	// [1:9] = amount_in
	// [9:17] = minimum_amount_out
	data := make([]byte, 17)
	data[0] = RaydiumOpSwapBaseIn
	binary.LittleEndian.PutUint64(data[1:9], p.AmountIn)
	binary.LittleEndian.PutUint64(data[9:17], p.MinAmountOut)

	pool := func(writable bool) *solana.AccountMeta {
		return &solana.AccountMeta{PublicKey: p.Pool, IsWritable: writable}
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: solana.TokenProgramID},
		pool(true),
		{PublicKey: RaydiumAMMAuthority},
		pool(true),
		pool(true),
		{PublicKey: p.CoinVault, IsWritable: true},
		{PublicKey: p.PcVault, IsWritable: true},
		pool(false),
		pool(true),
		pool(true),
		pool(true),
		pool(true),
		pool(true),
		pool(true),
		pool(false),
		{PublicKey: source, IsWritable: true},
		{PublicKey: dest, IsWritable: true},
		{PublicKey: p.Payer, IsSigner: true},
	}

	return solana.NewInstruction(RaydiumAMMProgramID, accounts, data), nil
}
