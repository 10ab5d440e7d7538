package swapengine

import (
	"fmt"
	"math"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/constants"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
)

// PriceImpact derives the pool's price move from the owner's first native and
// first non-native vault entries before and after the swap.
func PriceImpact(pre, post []models.TokenBalance, owner string, solPrice float64) (Impact, error) {
	preNative, preToken, ok := vaultPair(models.OwnedBy(pre, owner))
	if !ok {
		return Impact{}, fmt.Errorf("%w: pre balances of %s", ErrMissingBalance, owner)
	}
	postNative, postToken, ok := vaultPair(models.OwnedBy(post, owner))
	if !ok {
		return Impact{}, fmt.Errorf("%w: post balances of %s", ErrMissingBalance, owner)
	}
	if preToken.UIAmount <= 0 || postToken.UIAmount <= 0 || preNative.UIAmount <= 0 {
		return Impact{}, fmt.Errorf("%w: empty vault for %s", ErrMissingBalance, owner)
	}

	prePrice := preNative.UIAmount / preToken.UIAmount
	postPrice := postNative.UIAmount / postToken.UIAmount

	imp := Impact{
		TokenMint:      postToken.Mint,
		TokenDecimals:  postToken.Decimals,
		PrePrice:       prePrice,
		PostPrice:      postPrice,
		PrePriceUSD:    prePrice * solPrice,
		PostPriceUSD:   postPrice * solPrice,
		PriceChangePct: (postPrice - prePrice) * 100 / prePrice,
		LiquidityUSD:   2 * postNative.UIAmount * solPrice,
		SolDelta:       preNative.UIAmount - postNative.UIAmount,
		PostNative:     postNative.UIAmount,
		PostToken:      postToken.UIAmount,
	}
	if math.IsNaN(imp.PriceChangePct) || math.IsInf(imp.PriceChangePct, 0) {
		return Impact{}, fmt.Errorf("%w: undefined price change", ErrMissingBalance)
	}
	return imp, nil
}

func vaultPair(entries []models.TokenBalance) (native, token models.TokenBalance, ok bool) {
	var haveNative, haveToken bool
	for _, e := range entries {
		switch {
		case e.Mint == constants.NativeMint && !haveNative:
			native, haveNative = e, true
		case e.Mint != constants.NativeMint && !haveToken:
			token, haveToken = e, true
		}
	}
	return native, token, haveNative && haveToken
}
