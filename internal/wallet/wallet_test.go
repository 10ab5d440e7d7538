package wallet

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrivateKey(t *testing.T) {
	key := solana.NewWallet().PrivateKey

	fromB58, err := parsePrivateKey(base58.Encode(key))
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), fromB58.PublicKey())

	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	arr, err := json.Marshal(ints)
	require.NoError(t, err)
	fromJSON, err := parsePrivateKey(string(arr))
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), fromJSON.PublicKey())

	_, err = parsePrivateKey("[1,2,3]")
	assert.Error(t, err)
	_, err = parsePrivateKey("0OIl")
	assert.Error(t, err)
}

func TestNewWallet(t *testing.T) {
	_, err := NewWallet(WalletConfig{})
	assert.Error(t, err)

	key := solana.NewWallet().PrivateKey
	w, err := NewWallet(WalletConfig{PrivateKey: key.String()})
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey().String(), w.Address())

	_, err = w.GetBalanceSOL(context.Background())
	assert.Error(t, err)
}

func TestBuildSigned(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	w, err := NewWallet(WalletConfig{PrivateKey: key.String()})
	require.NoError(t, err)

	ix := solana.NewInstruction(solana.SystemProgramID, []*solana.AccountMeta{
		{PublicKey: w.PublicKey(), IsSigner: true, IsWritable: true},
	}, []byte{2, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0})

	tx, encoded, err := w.BuildSigned([]solana.Instruction{ix}, solana.Hash{1})
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 1)
	assert.NoError(t, tx.VerifySignatures())

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	decoded, err := solana.TransactionFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures[0], decoded.Signatures[0])
}
