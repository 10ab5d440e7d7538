package dex

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	pumpSwapBuyDiscriminator  = [8]byte{102, 6, 61, 18, 1, 218, 235, 234}
	pumpSwapSellDiscriminator = [8]byte{51, 230, 133, 164, 1, 127, 131, 173}
)

// PumpSwapParams describes a PumpSwap buy or sell. For a buy, Amount is
// base_amount_out and Limit is max_quote_amount_in; for a sell, Amount is
// base_amount_in and Limit is min_quote_amount_out.
type PumpSwapParams struct {
	Amount    uint64
	Limit     uint64
	Pool      solana.PublicKey
	BaseMint  solana.PublicKey
	QuoteMint solana.PublicKey
	Payer     solana.PublicKey
}

func BuildPumpSwapBuy(p PumpSwapParams) (solana.Instruction, error) {
	return buildPumpSwap(pumpSwapBuyDiscriminator, p)
}

func BuildPumpSwapSell(p PumpSwapParams) (solana.Instruction, error) {
	return buildPumpSwap(pumpSwapSellDiscriminator, p)
}

func buildPumpSwap(disc [8]byte, p PumpSwapParams) (solana.Instruction, error) {
	if p.Pool.IsZero() || p.Payer.IsZero() || p.BaseMint.IsZero() {
		return nil, fmt.Errorf("pumpswap: pool, payer and base mint are required")
	}
	if p.QuoteMint.IsZero() {
		p.QuoteMint = NativeMint
	}

	globalConfig, _, err := solana.FindProgramAddress([][]byte{[]byte("global_config")}, PumpSwapProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive global config: %w", err)
	}
	eventAuthority, _, err := solana.FindProgramAddress([][]byte{[]byte("__event_authority")}, PumpSwapProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive event authority: %w", err)
	}

	atas := make([]solana.PublicKey, 0, 5)
	for _, pair := range [][2]solana.PublicKey{
		{p.Payer, p.BaseMint},
		{p.Payer, p.QuoteMint},
		{p.Pool, p.BaseMint},
		{p.Pool, p.QuoteMint},
		{PumpSwapFeeAccount, p.QuoteMint},
	} {
		ata, err := FindAssociatedTokenAddress(pair[0], pair[1])
		if err != nil {
			return nil, fmt.Errorf("derive ata: %w", err)
		}
		atas = append(atas, ata)
	}

	data := make([]byte, 8+8+8)
	copy(data[0:8], disc[:])
	binary.LittleEndian.PutUint64(data[8:16], p.Amount)
	binary.LittleEndian.PutUint64(data[16:24], p.Limit)

	accounts := []*solana.AccountMeta{
		{PublicKey: p.Pool},
		{PublicKey: p.Payer, IsSigner: true, IsWritable: true},
		{PublicKey: globalConfig},
		{PublicKey: p.BaseMint},
		{PublicKey: p.QuoteMint},
		{PublicKey: atas[0], IsWritable: true},
		{PublicKey: atas[1], IsWritable: true},
		{PublicKey: atas[2], IsWritable: true},
		{PublicKey: atas[3], IsWritable: true},
		{PublicKey: PumpSwapFeeAccount},
		{PublicKey: atas[4], IsWritable: true},
		{PublicKey: solana.TokenProgramID},
		{PublicKey: solana.TokenProgramID},
		{PublicKey: solana.SystemProgramID},
		{PublicKey: AssociatedTokenProgramID},
		{PublicKey: eventAuthority},
		{PublicKey: PumpSwapProgramID},
	}

	return solana.NewInstruction(PumpSwapProgramID, accounts, data), nil
}
