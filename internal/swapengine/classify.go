package swapengine

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/constants"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/dex"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
)

// poolSwap is the first accepted pool swap of a transaction.
type poolSwap struct {
	protocol dex.Protocol
	opcode   byte
	pool     solana.PublicKey
	owner    solana.PublicKey
}

// classify walks instructions in order. The first recognized pool program
// decides: a swap opcode yields the match, anything else rejects the whole
// transaction.
func classify(tx *models.LiveTransaction) (poolSwap, error) {
	for i, ix := range tx.Instructions {
		proto := dex.ProtocolOf(ix.Program)
		if proto == dex.ProtocolUnknown {
			continue
		}
		if len(ix.Data) == 0 || !proto.AcceptsOpcode(ix.Data[0]) {
			return poolSwap{}, fmt.Errorf("%w: %s instruction %d", ErrOpcodeRejected, proto, i)
		}
		pool, owner, ok := proto.PoolOwner(ix.Accounts)
		if !ok {
			return poolSwap{}, fmt.Errorf("%w: %s instruction %d has %d accounts", ErrMissingBalance, proto, i, len(ix.Accounts))
		}
		return poolSwap{protocol: proto, opcode: ix.Data[0], pool: pool, owner: owner}, nil
	}
	return poolSwap{}, ErrNoPoolSwap
}

// boughtByOther reports whether the pool owner's native vault grew, meaning
// the observed party paid SOL for tokens.
func boughtByOther(tx *models.LiveTransaction, owner string) (bool, error) {
	pre := models.OwnedBy(tx.PreTokenBalances, owner)
	post := models.OwnedBy(tx.PostTokenBalances, owner)

	for i := 0; i < len(pre) && i < len(post); i++ {
		a, b := pre[i], post[i]
		if a.Mint != constants.NativeMint || b.Mint != constants.NativeMint {
			continue
		}
		if a.Amount == b.Amount && a.UIAmount == b.UIAmount {
			continue
		}
		if a.Amount != b.Amount {
			return b.Amount > a.Amount, nil
		}
		return b.UIAmount > a.UIAmount, nil
	}
	return false, ErrNoVaultChange
}
