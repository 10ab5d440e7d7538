package rpc

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
)

var ErrMalformedTransaction = errors.New("malformed transaction")

// DecodeLive converts a jsonParsed transaction into a LiveTransaction.
// Parsed instructions (system, spl-token, ...) keep their program id but carry
// no accounts or data.
func DecodeLive(res *TransactionResult) (*models.LiveTransaction, error) {
	if res == nil || res.Transaction == nil || res.Meta == nil {
		return nil, fmt.Errorf("%w: missing transaction or meta", ErrMalformedTransaction)
	}
	if len(res.Transaction.Signatures) == 0 {
		return nil, fmt.Errorf("%w: no signatures", ErrMalformedTransaction)
	}

	sig, err := solana.SignatureFromBase58(res.Transaction.Signatures[0])
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %v", ErrMalformedTransaction, err)
	}

	msg := res.Transaction.Message
	live := &models.LiveTransaction{
		Signature:   sig,
		Slot:        res.Slot,
		AccountKeys: make([]solana.PublicKey, 0, len(msg.AccountKeys)),
		ReceivedAt:  time.Now(),
	}

	if msg.RecentBlockhash != "" {
		h, err := solana.HashFromBase58(msg.RecentBlockhash)
		if err != nil {
			return nil, fmt.Errorf("%w: blockhash: %v", ErrMalformedTransaction, err)
		}
		live.RecentBlockhash = h
	}

	for _, k := range msg.AccountKeys {
		pk, err := solana.PublicKeyFromBase58(k.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("%w: account key: %v", ErrMalformedTransaction, err)
		}
		live.AccountKeys = append(live.AccountKeys, pk)
	}

	live.Instructions = make([]models.Instruction, 0, len(msg.Instructions))
	for _, ix := range msg.Instructions {
		program, err := solana.PublicKeyFromBase58(ix.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("%w: program id: %v", ErrMalformedTransaction, err)
		}
		out := models.Instruction{Program: program}
		if len(ix.Parsed) == 0 {
			out.Accounts = make([]solana.PublicKey, 0, len(ix.Accounts))
			for _, a := range ix.Accounts {
				pk, err := solana.PublicKeyFromBase58(a)
				if err != nil {
					return nil, fmt.Errorf("%w: instruction account: %v", ErrMalformedTransaction, err)
				}
				out.Accounts = append(out.Accounts, pk)
			}
			if ix.Data != "" {
				if out.Data, err = base58.Decode(ix.Data); err != nil {
					return nil, fmt.Errorf("%w: instruction data: %v", ErrMalformedTransaction, err)
				}
			}
		}
		live.Instructions = append(live.Instructions, out)
	}

	live.PreTokenBalances = decodeBalances(res.Meta.PreTokenBalances)
	live.PostTokenBalances = decodeBalances(res.Meta.PostTokenBalances)
	return live, nil
}

func decodeBalances(in []TokenBalance) []models.TokenBalance {
	out := make([]models.TokenBalance, 0, len(in))
	for _, b := range in {
		raw, _ := strconv.ParseUint(b.UITokenAmount.Amount, 10, 64)
		ui := b.UITokenAmount.UIAmount
		if b.UITokenAmount.UIAmountString != "" {
			if v, err := strconv.ParseFloat(b.UITokenAmount.UIAmountString, 64); err == nil {
				ui = v
			}
		}
		out = append(out, models.TokenBalance{
			AccountIndex: b.AccountIndex,
			Mint:         b.Mint,
			Owner:        b.Owner,
			Amount:       raw,
			UIAmount:     ui,
			Decimals:     b.UITokenAmount.Decimals,
		})
	}
	return out
}
