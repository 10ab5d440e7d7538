package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/flags"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/ledger"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
	"github.com/aman-zulfiqar/solana-reactive-trader/internal/stream"
)

const testPool = "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2"

type fakeLedger struct {
	records map[string]*ledger.PoolRecord
}

func (f *fakeLedger) Get(_ context.Context, pool string) (*ledger.PoolRecord, error) {
	rec, ok := f.records[pool]
	if !ok {
		return nil, ledger.ErrPoolNotFound
	}
	return rec, nil
}

func (f *fakeLedger) ComputePnl(_ context.Context, pool string, price float64) (ledger.PnL, error) {
	rec := f.records[pool]
	return ledger.PnL{Percent: price * 100, Held: rec.TotalTokenAmountOut, TakeProfit: rec.TakeProfit}, nil
}

type fakeFlags struct {
	mu    sync.Mutex
	items map[string]*flags.Flag
}

func (f *fakeFlags) Upsert(_ context.Context, key string, value bool) (*flags.Flag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl := &flags.Flag{Key: key, Value: value, UpdatedAt: time.Now()}
	f.items[key] = fl
	return fl, nil
}

func (f *fakeFlags) Get(_ context.Context, key string) (*flags.Flag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl, ok := f.items[key]
	if !ok {
		return nil, flags.ErrNotFound
	}
	return fl, nil
}

func (f *fakeFlags) List(context.Context) ([]*flags.Flag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*flags.Flag, 0, len(f.items))
	for _, fl := range f.items {
		out = append(out, fl)
	}
	return out, nil
}

func (f *fakeFlags) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, key)
	return nil
}

type fakeReactions struct{ items []*models.Reaction }

func (f *fakeReactions) RecentReactions(_ context.Context, limit int64) ([]*models.Reaction, error) {
	if int64(len(f.items)) > limit {
		return f.items[:limit], nil
	}
	return f.items, nil
}
func (f *fakeReactions) Ping(context.Context) error { return nil }
func (f *fakeReactions) Close() error               { return nil }

func newTestServer(t *testing.T, apiKey string) (*Server, *fakeFlags) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	fl := &fakeFlags{items: map[string]*flags.Flag{}}
	h := &Handlers{
		Reactions: &fakeReactions{items: []*models.Reaction{{OriginSignature: "b"}, {OriginSignature: "a"}}},
		Flags:     fl,
		Ledger: &fakeLedger{records: map[string]*ledger.PoolRecord{
			testPool: {PoolID: testPool, TotalTokenAmountOut: 100, TakeProfit: 10},
		}},
		Feed:      func() stream.Status { return stream.Status{State: "streaming", Inflight: 3} },
		Runtime:   func() flags.Runtime { return flags.Runtime{Submit: true} },
		Price:     func() float64 { return 150 },
		Providers: []string{"nozomi", "jito"},
	}
	srv, err := NewServer(ServerDeps{Handlers: h, Config: ServerConfig{APIKey: apiKey}, Logger: logger})
	require.NoError(t, err)
	return srv, fl
}

func do(t *testing.T, srv *Server, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func TestHealthAndStatus(t *testing.T) {
	srv, _ := newTestServer(t, "")

	rec, body := do(t, srv, http.MethodGet, "/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec, body = do(t, srv, http.MethodGet, "/v1/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 150.0, body["sol_usd"])
	assert.Equal(t, "streaming", body["feed"].(map[string]any)["state"])
	assert.Equal(t, true, body["flags"].(map[string]any)["submit"])
	assert.Equal(t, []any{"nozomi", "jito"}, body["providers"])
}

func TestLedgerGet(t *testing.T) {
	srv, _ := newTestServer(t, "")

	rec, body := do(t, srv, http.MethodGet, "/v1/ledger/"+testPool, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testPool, body["record"].(map[string]any)["pool_id"])
	assert.Nil(t, body["pnl"])

	rec, body = do(t, srv, http.MethodGet, "/v1/ledger/"+testPool+"?price=0.5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50.0, body["pnl"].(map[string]any)["percent"])

	rec, _ = do(t, srv, http.MethodGet, "/v1/ledger/"+testPool+"?price=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, srv, http.MethodGet, "/v1/ledger/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "pool not found", body["error"])
}

func TestRecentReactions(t *testing.T) {
	srv, _ := newTestServer(t, "")

	rec, body := do(t, srv, http.MethodGet, "/v1/reactions/recent?limit=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].(map[string]any)["origin_signature"])

	for _, bad := range []string{"0", "201", "x"} {
		rec, _ = do(t, srv, http.MethodGet, "/v1/reactions/recent?limit="+bad, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestFlagsCRUD(t *testing.T) {
	srv, fl := newTestServer(t, "")

	rec, body := do(t, srv, http.MethodPost, "/v1/flags", `{"key":"trader.racing","value":true}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "trader.racing", body["key"])
	assert.True(t, fl.items[flags.KeyRacing].Value)

	rec, _ = do(t, srv, http.MethodPut, "/v1/flags/trader.racing", `{"value":false}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, fl.items[flags.KeyRacing].Value)

	rec, body = do(t, srv, http.MethodGet, "/v1/flags/trader.racing", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["value"])

	rec, body = do(t, srv, http.MethodGet, "/v1/flags", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["items"], 1)

	rec, _ = do(t, srv, http.MethodPost, "/v1/flags", `{"key":"bad key!","value":true}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, srv, http.MethodDelete, "/v1/flags/trader.racing", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = do(t, srv, http.MethodGet, "/v1/flags/trader.racing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIKeyAndNotFound(t *testing.T) {
	srv, _ := newTestServer(t, "secret")

	rec, _ := do(t, srv, http.MethodGet, "/v1/health", "", nil)
	assert.NotEqual(t, http.StatusOK, rec.Code)

	rec, _ = do(t, srv, http.MethodGet, "/v1/health", "", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, srv, http.MethodGet, "/v1/health", "", map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, srv, http.MethodGet, "/nope", "", map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", body["error"])
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(ServerDeps{})
	assert.Error(t, err)
	_, err = NewServer(ServerDeps{Handlers: &Handlers{}})
	assert.Error(t, err)
}
