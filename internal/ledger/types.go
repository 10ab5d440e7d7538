package ledger

import "errors"

var (
	ErrPoolNotFound  = errors.New("pool ledger not found")
	ErrTokenNotFound = errors.New("token info not found")
	ErrInvalidPool   = errors.New("invalid pool id")
)

// Fill is one confirmed transaction's contribution to a pool's inventory.
type Fill struct {
	Signature   string  `json:"signature"`
	AmountIn    uint64  `json:"amount_in"`
	UIAmountIn  float64 `json:"ui_amount_in"`
	AmountOut   uint64  `json:"amount_out"`
	UIAmountOut float64 `json:"ui_amount_out"`
}

// PoolRecord is the persisted per-pool ledger document.
type PoolRecord struct {
	PoolID                string  `json:"pool_id"`
	BaseMint              string  `json:"base_mint"`
	QuoteMint             string  `json:"quote_mint"`
	BaseVault             string  `json:"base_vault"`
	QuoteVault            string  `json:"quote_vault"`
	TokenATA              string  `json:"token_ata"`
	Symbol                string  `json:"symbol"`
	TotalAmountIn         uint64  `json:"total_amount_in"`
	TotalUIAmountIn       float64 `json:"total_ui_amount_in"`
	TotalTokenAmountOut   uint64  `json:"total_token_amount_out"`
	TotalUITokenAmountOut float64 `json:"total_ui_token_amount_out"`
	TakeProfit            float64 `json:"take_profit"`
	Transactions          []Fill  `json:"transactions"`
	Dex                   string  `json:"dex"`

	// LastDisposal is the signature of the sell that last reset this record.
	LastDisposal string `json:"last_disposal,omitempty"`
}

// Totals is a delta applied to a record's cumulative counters.
type Totals struct {
	AmountIn         uint64  `json:"amount_in"`
	UIAmountIn       float64 `json:"ui_amount_in"`
	TokenAmountOut   uint64  `json:"token_amount_out"`
	UITokenAmountOut float64 `json:"ui_token_amount_out"`
}

// IsZero reports whether the delta carries nothing.
func (t Totals) IsZero() bool {
	return t.AmountIn == 0 && t.UIAmountIn == 0 && t.TokenAmountOut == 0 && t.UITokenAmountOut == 0
}

// PnL is the result of marking a pool's inventory at a unit price.
type PnL struct {
	Percent    float64 `json:"percent"`
	Held       uint64  `json:"held"`
	TakeProfit float64 `json:"take_profit"`
}

// TokenInfo holds the resolved addresses needed to build a swap for a pool.
// It is keyed by pool id.
type TokenInfo struct {
	ID         string `json:"id_bs64"`
	BaseVault  string `json:"base_vault_b64"`
	QuoteVault string `json:"quote_vault_b64"`
	BaseMint   string `json:"base_mint"`
	QuoteMint  string `json:"quote_mint"`
	Symbol     string `json:"clean_symbol"`
	ATA        string `json:"ata"`
	Dex        string `json:"dex"`
}
