package dex

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/constants"
)

// FindAssociatedTokenAddress derives the ATA PDA for (owner, mint).
func FindAssociatedTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	// Seeds: [owner, token_program, mint]
	ata, _, err := solana.FindProgramAddress(
		[][]byte{
			owner.Bytes(),
			solana.TokenProgramID.Bytes(),
			mint.Bytes(),
		},
		AssociatedTokenProgramID,
	)
	return ata, err
}

// NewSystemTransferIx builds a SystemProgram transfer instruction.
func NewSystemTransferIx(from, to solana.PublicKey, lamports uint64) solana.Instruction {
	// u32: instruction index (2 = Transfer)
	// u64: lamports
	data := make([]byte, 4+8)
	binary.LittleEndian.PutUint32(data[0:4], 2)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	accounts := []*solana.AccountMeta{
		{PublicKey: from, IsSigner: true, IsWritable: true},
		{PublicKey: to, IsSigner: false, IsWritable: true},
	}
	return solana.NewInstruction(solana.SystemProgramID, accounts, data)
}

// NewSetComputeUnitPriceIx sets the priority fee in micro-lamports per compute unit.
func NewSetComputeUnitPriceIx(microLamports uint64) solana.Instruction {
	// u8: instruction index (3 = SetComputeUnitPrice)
	data := make([]byte, 1+8)
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:9], microLamports)
	return solana.NewInstruction(ComputeBudgetProgramID, []*solana.AccountMeta{}, data)
}

var raceDiscriminator = [8]byte{25, 195, 19, 166, 162, 87, 210, 253}

// NewRaceMarkerIx builds the anti-replay marker. The program rejects a second
// landing for the same (payer, nonce).
func NewRaceMarkerIx(payer solana.PublicKey, nonce uint64) (solana.Instruction, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("race-identity-seed"), payer.Bytes()},
		RaceProgramID,
	)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 8+8)
	copy(data[0:8], raceDiscriminator[:])
	binary.LittleEndian.PutUint64(data[8:16], nonce)

	accounts := []*solana.AccountMeta{
		{PublicKey: pda, IsSigner: false, IsWritable: true},
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(RaceProgramID, accounts, data), nil
}

// NonceFromSignature reads the first 8 signature bytes as a little-endian integer.
func NonceFromSignature(sig solana.Signature) uint64 {
	return binary.LittleEndian.Uint64(sig[:8])
}

// Lamports converts SOL to lamports, truncating. Non-positive or NaN yields 0.
func Lamports(sol float64) uint64 {
	if !(sol > 0) {
		return 0
	}
	return uint64(sol * constants.LamportsPerSOL)
}
