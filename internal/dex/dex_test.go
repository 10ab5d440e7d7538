package dex

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testPayer = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	testPool  = solana.MustPublicKeyFromBase58("58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2")
	testMint  = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

func ixData(t *testing.T, ix solana.Instruction) []byte {
	t.Helper()
	data, err := ix.Data()
	require.NoError(t, err)
	return data
}

func TestProtocolOpcodes(t *testing.T) {
	assert.Equal(t, ProtocolRaydiumAMM, ProtocolOf(RaydiumAMMProgramID))
	assert.Equal(t, ProtocolPumpSwap, ProtocolOf(PumpSwapProgramID))
	assert.Equal(t, ProtocolUnknown, ProtocolOf(solana.SystemProgramID))

	for op := 0; op < 256; op++ {
		b := byte(op)
		assert.Equal(t, b == 9 || b == 11, ProtocolRaydiumAMM.AcceptsOpcode(b), "raydium op %d", op)
		assert.Equal(t, b == 102 || b == 51, ProtocolPumpSwap.AcceptsOpcode(b), "pumpswap op %d", op)
		assert.False(t, ProtocolUnknown.AcceptsOpcode(b))
	}
}

func TestBuildSwapBaseIn(t *testing.T) {
	coin := solana.NewWallet().PublicKey()
	pc := solana.NewWallet().PublicKey()

	ix, err := BuildSwapBaseIn(SwapBaseInParams{
		AmountIn:     1_500_000,
		MinAmountOut: 1,
		Pool:         testPool,
		CoinVault:    coin,
		PcVault:      pc,
		InputMint:    NativeMint,
		OutputMint:   testMint,
		Payer:        testPayer,
	})
	require.NoError(t, err)

	assert.Equal(t, RaydiumAMMProgramID, ix.ProgramID())
	data := ixData(t, ix)
	require.Len(t, data, 17)
	assert.Equal(t, byte(9), data[0])
	assert.Equal(t, uint64(1_500_000), binary.LittleEndian.Uint64(data[1:9]))
	assert.Equal(t, uint64(1), binary.LittleEndian.Uint64(data[9:17]))

	accts := ix.Accounts()
	require.Len(t, accts, 18)
	assert.Equal(t, solana.TokenProgramID, accts[0].PublicKey)
	assert.Equal(t, RaydiumAMMAuthority, accts[2].PublicKey)
	assert.Equal(t, coin, accts[5].PublicKey)
	assert.Equal(t, pc, accts[6].PublicKey)
	assert.False(t, accts[7].IsWritable)
	assert.False(t, accts[14].IsWritable)

	src, err := FindAssociatedTokenAddress(testPayer, NativeMint)
	require.NoError(t, err)
	assert.Equal(t, src, accts[15].PublicKey)
	assert.True(t, accts[17].IsSigner)
	assert.False(t, accts[17].IsWritable)

	_, err = BuildSwapBaseIn(SwapBaseInParams{Pool: testPool, Payer: testPayer})
	assert.Error(t, err)
}

func TestBuildPumpSwap(t *testing.T) {
	params := PumpSwapParams{Amount: 42, Limit: 7, Pool: testPool, BaseMint: testMint, Payer: testPayer}

	buy, err := BuildPumpSwapBuy(params)
	require.NoError(t, err)
	data := ixData(t, buy)
	require.Len(t, data, 24)
	assert.Equal(t, []byte{102, 6, 61, 18, 1, 218, 235, 234}, data[:8])
	assert.Equal(t, uint64(42), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(7), binary.LittleEndian.Uint64(data[16:24]))

	sell, err := BuildPumpSwapSell(params)
	require.NoError(t, err)
	assert.Equal(t, byte(51), ixData(t, sell)[0])

	accts := sell.Accounts()
	require.Len(t, accts, 17)
	assert.Equal(t, testPool, accts[0].PublicKey)
	assert.True(t, accts[1].IsSigner)
	assert.Equal(t, NativeMint, accts[4].PublicKey)
	assert.Equal(t, PumpSwapFeeAccount, accts[9].PublicKey)
	assert.Equal(t, PumpSwapProgramID, accts[16].PublicKey)

	_, err = BuildPumpSwapBuy(PumpSwapParams{Pool: testPool})
	assert.Error(t, err)
}

func TestRaceMarkerAndNonce(t *testing.T) {
	var sig solana.Signature
	copy(sig[:], []byte{1, 2, 3, 4, 5, 6, 7, 8, 9})
	nonce := NonceFromSignature(sig)
	assert.Equal(t, uint64(0x0807060504030201), nonce)

	ix, err := NewRaceMarkerIx(testPayer, nonce)
	require.NoError(t, err)
	assert.Equal(t, RaceProgramID, ix.ProgramID())

	data := ixData(t, ix)
	assert.Equal(t, raceDiscriminator[:], data[:8])
	assert.Equal(t, nonce, binary.LittleEndian.Uint64(data[8:]))

	again, err := NewRaceMarkerIx(testPayer, nonce+1)
	require.NoError(t, err)
	assert.Equal(t, ix.Accounts()[0].PublicKey, again.Accounts()[0].PublicKey, "pda depends on payer only")
}

func TestComputeBudgetAndTransfer(t *testing.T) {
	cb := NewSetComputeUnitPriceIx(30000)
	data := ixData(t, cb)
	assert.Equal(t, byte(3), data[0])
	assert.Equal(t, uint64(30000), binary.LittleEndian.Uint64(data[1:]))
	assert.Empty(t, cb.Accounts())

	to := solana.NewWallet().PublicKey()
	tr := NewSystemTransferIx(testPayer, to, 5000)
	data = ixData(t, tr)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(data[:4]))
	assert.Equal(t, uint64(5000), binary.LittleEndian.Uint64(data[4:]))
	assert.Equal(t, to, tr.Accounts()[1].PublicKey)
}

func TestPoolOwner(t *testing.T) {
	other := solana.NewWallet().PublicKey()

	pool, owner, ok := ProtocolRaydiumAMM.PoolOwner([]solana.PublicKey{other, testPool})
	require.True(t, ok)
	assert.Equal(t, testPool, pool)
	assert.Equal(t, RaydiumAMMAuthority, owner)

	pool, owner, ok = ProtocolPumpSwap.PoolOwner([]solana.PublicKey{testPool, other})
	require.True(t, ok)
	assert.Equal(t, testPool, pool)
	assert.Equal(t, testPool, owner)

	_, _, ok = ProtocolRaydiumAMM.PoolOwner([]solana.PublicKey{other})
	assert.False(t, ok)
	_, _, ok = ProtocolPumpSwap.PoolOwner(nil)
	assert.False(t, ok)
	_, _, ok = ProtocolUnknown.PoolOwner([]solana.PublicKey{other, other})
	assert.False(t, ok)
}

func TestLamports(t *testing.T) {
	assert.Equal(t, uint64(1_500_000_000), Lamports(1.5))
	assert.Equal(t, uint64(500_000), Lamports(0.0005))
	assert.Equal(t, uint64(0), Lamports(-1))
	assert.Equal(t, uint64(0), Lamports(0))
}
