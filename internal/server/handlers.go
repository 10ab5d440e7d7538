package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/flags"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/ledger"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/storage"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/stream"
)

// FlagStore is the flags CRUD surface
type FlagStore interface {
	Upsert(ctx context.Context, key string, value bool) (*flags.Flag, error)
	Get(ctx context.Context, key string) (*flags.Flag, error)
	List(ctx context.Context) ([]*flags.Flag, error)
	Delete(ctx context.Context, key string) error
}

// LedgerReader serves pool records and PnL
type LedgerReader interface {
	Get(ctx context.Context, pool string) (*ledger.PoolRecord, error)
	ComputePnl(ctx context.Context, pool string, unitPrice float64) (ledger.PnL, error)
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Reactions storage.ReactionReader // Redis-backed recent reactions (optional)
	Flags     FlagStore              // Redis-backed feature flags store (optional)
	Ledger    LedgerReader           // Trade ledger
	Feed      func() stream.Status   // Feed connection status
	Runtime   func() flags.Runtime   // Current runtime switches
	Price     func() float64         // Reference SOL/USD price
	Providers []string               // Delivery provider names
	DevMode   bool                   // Enable detailed error responses in development
	Logger    *logrus.Logger         // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// Status reports feed state, reference price, switches and providers
func (h *Handlers) Status(c echo.Context) error {
	resp := StatusResponse{Providers: h.Providers}
	if h.Feed != nil {
		resp.Feed = h.Feed()
	}
	if h.Price != nil {
		resp.SOLUSD = h.Price()
	}
	if h.Runtime != nil {
		resp.Flags = h.Runtime()
	}
	if resp.Providers == nil {
		resp.Providers = []string{}
	}
	return c.JSON(http.StatusOK, resp)
}

// LedgerGet returns a pool record. With ?price= it also returns the PnL of
// disposing the held amount at that SOL unit price.
func (h *Handlers) LedgerGet(c echo.Context) error {
	pool := strings.TrimSpace(c.Param("pool"))
	if pool == "" {
		return h.err(c, http.StatusBadRequest, "invalid pool", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	rec, err := h.Ledger.Get(ctx, pool)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrPoolNotFound):
			return h.err(c, http.StatusNotFound, "pool not found", nil)
		case errors.Is(err, ledger.ErrInvalidPool):
			return h.err(c, http.StatusBadRequest, "invalid pool", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to load ledger", map[string]any{"err": err.Error()})
	}

	resp := LedgerResponse{Record: rec}
	if raw := c.QueryParam("price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || price <= 0 {
			return h.err(c, http.StatusBadRequest, "invalid price", map[string]any{"price": "must be a positive number"})
		}
		pnl, err := h.Ledger.ComputePnl(ctx, pool, price)
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to compute pnl", nil)
		}
		resp.PnL = &pnl
	}
	return c.JSON(http.StatusOK, resp)
}

// RecentReactions returns the most recent reactions with optional limit parameter
// Accepts limit query parameter (default: 50, range: 1-200)
func (h *Handlers) RecentReactions(c echo.Context) error {
	if h.Reactions == nil {
		return h.err(c, http.StatusServiceUnavailable, "reaction cache is not configured", nil)
	}
	limitStr := c.QueryParam("limit")
	limit := 50
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Reactions.RecentReactions(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get reactions", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsUpsert creates or updates a feature flag with the given key and value
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	h.logFlag(out)
	return c.JSON(http.StatusOK, out)
}

// FlagsUpdate updates an existing feature flag with the given key
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	h.logFlag(out)
	return c.JSON(http.StatusOK, out)
}

// FlagsGet retrieves a feature flag by its key
// Returns 404 if flag doesn't exist
func (h *Handlers) FlagsGet(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsList returns all feature flags in the system
func (h *Handlers) FlagsList(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete removes a feature flag by its key
// Returns 204 No Content on successful deletion
func (h *Handlers) FlagsDelete(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) logFlag(f *flags.Flag) {
	if h.Logger == nil || f == nil {
		return
	}
	h.Logger.WithFields(logrus.Fields{"key": f.Key, "value": f.Value}).Info("Flag updated")
}
