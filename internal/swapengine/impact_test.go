package swapengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/constants"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
)

func TestPriceImpact(t *testing.T) {
	owner := "owner"
	pre := []models.TokenBalance{
		vault(owner, testMint, 1000, 6),
		vault(owner, constants.NativeMint, 100, 9),
	}
	post := []models.TokenBalance{
		vault(owner, testMint, 800, 6),
		vault(owner, constants.NativeMint, 125, 9),
	}

	imp, err := PriceImpact(pre, post, owner, 200)
	require.NoError(t, err)

	assert.Equal(t, testMint, imp.TokenMint)
	assert.Equal(t, 6, imp.TokenDecimals)
	assert.InDelta(t, 0.1, imp.PrePrice, 1e-12)
	assert.InDelta(t, 0.15625, imp.PostPrice, 1e-12)
	assert.InDelta(t, 56.25, imp.PriceChangePct, 1e-9)
	assert.InDelta(t, 2*125*200, imp.LiquidityUSD, 1e-9)
	assert.InDelta(t, -25, imp.SolDelta, 1e-12)
	assert.InDelta(t, 20, imp.PrePriceUSD, 1e-9)
	assert.InDelta(t, 31.25, imp.PostPriceUSD, 1e-9)
}

func TestPriceImpact_IgnoresOtherOwners(t *testing.T) {
	pre := []models.TokenBalance{
		vault("someone", constants.NativeMint, 1, 9),
		vault("owner", constants.NativeMint, 50, 9),
		vault("owner", testMint, 500, 6),
	}
	post := []models.TokenBalance{
		vault("someone", constants.NativeMint, 2, 9),
		vault("owner", constants.NativeMint, 40, 9),
		vault("owner", testMint, 625, 6),
	}
	imp, err := PriceImpact(pre, post, "owner", 100)
	require.NoError(t, err)
	assert.InDelta(t, 10, imp.SolDelta, 1e-12)
	assert.InDelta(t, 8000, imp.LiquidityUSD, 1e-9)
}

func TestPriceImpact_Missing(t *testing.T) {
	onlyNative := []models.TokenBalance{vault("owner", constants.NativeMint, 1, 9)}
	_, err := PriceImpact(onlyNative, onlyNative, "owner", 100)
	assert.ErrorIs(t, err, ErrMissingBalance)

	empty := []models.TokenBalance{
		vault("owner", constants.NativeMint, 1, 9),
		vault("owner", testMint, 0, 6),
	}
	_, err = PriceImpact(empty, empty, "owner", 100)
	assert.ErrorIs(t, err, ErrMissingBalance)
}

func TestBoughtByOther(t *testing.T) {
	bought, err := boughtByOther(pumpPump(), testPool.String())
	require.NoError(t, err)
	assert.True(t, bought)

	bought, err = boughtByOther(pumpDump(), testPool.String())
	require.NoError(t, err)
	assert.False(t, bought)

	unchanged := liveTx(testPool.String(), nil, 100, 100, 1000, 900)
	_, err = boughtByOther(unchanged, testPool.String())
	assert.ErrorIs(t, err, ErrNoVaultChange)
}
