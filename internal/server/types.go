package server

import (
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/flags"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/ledger"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/stream"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK bool `json:"ok"` // Service health status
}

// StatusResponse is a snapshot of the running trader
type StatusResponse struct {
	Feed      stream.Status `json:"feed"`
	SOLUSD    float64       `json:"sol_usd"`
	Flags     flags.Runtime `json:"flags"`
	Providers []string      `json:"providers"`
}

// LedgerResponse is a pool record plus its PnL at the requested price
type LedgerResponse struct {
	Record *ledger.PoolRecord `json:"record"`
	PnL    *ledger.PnL        `json:"pnl,omitempty"`
}

// FlagUpsertRequest represents a request to create or update a feature flag
type FlagUpsertRequest struct {
	Key   string `json:"key"`   // Flag key (must match regex pattern)
	Value bool   `json:"value"` // Flag value (true/false)
}

// FlagUpdateRequest represents a request to update an existing feature flag
type FlagUpdateRequest struct {
	Value bool `json:"value"` // New flag value
}
