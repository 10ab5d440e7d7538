package dex

import (
	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/constants"
)

var (
	NativeMint          = solana.MustPublicKeyFromBase58(constants.NativeMint)
	RaydiumAMMProgramID = solana.MustPublicKeyFromBase58(constants.RaydiumAMMProgram)
	RaydiumAMMAuthority = solana.MustPublicKeyFromBase58(constants.RaydiumAMMAuthority)
	PumpSwapProgramID   = solana.MustPublicKeyFromBase58(constants.PumpSwapProgram)
	PumpSwapFeeAccount  = solana.MustPublicKeyFromBase58(constants.PumpSwapFeeAccount)
	RaceProgramID       = solana.MustPublicKeyFromBase58(constants.RaceProgram)

	ComputeBudgetProgramID   = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")
	AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// Protocol identifies a recognized pool program.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolRaydiumAMM
	ProtocolPumpSwap
)

func (p Protocol) String() string {
	switch p {
	case ProtocolRaydiumAMM:
		return "raydium_amm"
	case ProtocolPumpSwap:
		return "pumpswap"
	default:
		return "unknown"
	}
}

// Swap opcodes: the leading data byte of an accepted instruction.
const (
	RaydiumOpSwapBaseIn  byte = 9
	RaydiumOpSwapBaseOut byte = 11
	PumpSwapOpBuy        byte = 102
	PumpSwapOpSell       byte = 51
)

// ProtocolOf resolves a program id to a recognized protocol.
func ProtocolOf(program solana.PublicKey) Protocol {
	switch {
	case program.Equals(RaydiumAMMProgramID):
		return ProtocolRaydiumAMM
	case program.Equals(PumpSwapProgramID):
		return ProtocolPumpSwap
	default:
		return ProtocolUnknown
	}
}

// AcceptsOpcode reports whether op is a swap opcode for p.
func (p Protocol) AcceptsOpcode(op byte) bool {
	switch p {
	case ProtocolRaydiumAMM:
		return op == RaydiumOpSwapBaseIn || op == RaydiumOpSwapBaseOut
	case ProtocolPumpSwap:
		return op == PumpSwapOpBuy || op == PumpSwapOpSell
	default:
		return false
	}
}

// PoolOwner returns the pool id and the owner of its reserve vaults for a
// swap instruction's account list. Raydium vaults are owned by the shared AMM
// authority; PumpSwap vaults are owned by the pool itself.
func (p Protocol) PoolOwner(accounts []solana.PublicKey) (pool, owner solana.PublicKey, ok bool) {
	switch p {
	case ProtocolRaydiumAMM:
		if len(accounts) < 2 {
			return pool, owner, false
		}
		return accounts[1], RaydiumAMMAuthority, true
	case ProtocolPumpSwap:
		if len(accounts) < 1 {
			return pool, owner, false
		}
		return accounts[0], accounts[0], true
	default:
		return pool, owner, false
	}
}
