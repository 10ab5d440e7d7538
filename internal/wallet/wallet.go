package wallet

import (
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// SignTx signs a transaction with the wallet's private key
func (w *Wallet) SignTx(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.pub) {
			return &w.priv
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

// BuildSigned assembles instructions into a transaction paid by the wallet,
// signs it, and returns it with its base64 wire encoding.
func (w *Wallet) BuildSigned(instructions []solana.Instruction, blockhash solana.Hash) (*solana.Transaction, string, error) {
	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(w.pub),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := w.SignTx(tx); err != nil {
		return nil, "", err
	}

	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return nil, "", fmt.Errorf("failed to serialize transaction: %w", err)
	}

	return tx, base64.StdEncoding.EncodeToString(txBytes), nil
}
