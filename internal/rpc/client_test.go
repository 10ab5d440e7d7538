package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func newTestServer(t *testing.T, handle func(req rpcRequest) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req rpcRequest
		require.NoError(t, json.Unmarshal(body, &req))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, handle(req))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(url string) *Client {
	return NewClient(ClientConfig{BaseURL: url, Timeout: 2 * time.Second, MaxRetries: 2, RetryBackoff: time.Millisecond})
}

func TestGetSignatureState(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  SignatureState
	}{
		{"not found", `[null]`, SignatureNotFound},
		{"empty", `[]`, SignatureNotFound},
		{"processed", `[{"slot":1,"confirmations":0,"err":null,"confirmationStatus":"processed"}]`, SignaturePending},
		{"confirmed", `[{"slot":1,"confirmations":3,"err":null,"confirmationStatus":"confirmed"}]`, SignatureConfirmed},
		{"finalized", `[{"slot":1,"confirmations":null,"err":null,"confirmationStatus":"finalized"}]`, SignatureConfirmed},
		{"failed", `[{"slot":1,"err":{"InstructionError":[2,{"Custom":6001}]},"confirmationStatus":"confirmed"}]`, SignatureFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(req rpcRequest) string {
				assert.Equal(t, "getSignatureStatuses", req.Method)
				return `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":` + tt.value + `}}`
			})
			got, err := newTestClient(srv.URL).GetSignatureState(context.Background(), "sig")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSendTransaction(t *testing.T) {
	srv := newTestServer(t, func(req rpcRequest) string {
		assert.Equal(t, "sendTransaction", req.Method)
		var encoded string
		require.NoError(t, json.Unmarshal(req.Params[0], &encoded))
		if encoded == "bad" {
			return `{"jsonrpc":"2.0","id":1,"error":{"code":-32002,"message":"blockhash not found"}}`
		}
		return `{"jsonrpc":"2.0","id":1,"result":"5sig"}`
	})
	c := newTestClient(srv.URL)

	sig, err := c.SendTransaction(context.Background(), "AQID", true)
	require.NoError(t, err)
	assert.Equal(t, "5sig", sig)

	_, err = c.SendTransaction(context.Background(), "bad", true)
	assert.ErrorContains(t, err, "blockhash not found")
}

func TestGetTransaction_ParsesInstructionsAndOwners(t *testing.T) {
	srv := newTestServer(t, func(req rpcRequest) string {
		return `{"jsonrpc":"2.0","id":1,"result":{
			"slot": 42,
			"transaction": {
				"signatures": ["sigA"],
				"message": {
					"accountKeys": [{"pubkey":"payer","signer":true,"writable":true}],
					"instructions": [
						{"programId":"prog","accounts":["a","b"],"data":"3Bxs4h24hBtQy9rw"},
						{"program":"system","programId":"11111111111111111111111111111111","parsed":{"type":"transfer"}}
					],
					"recentBlockhash": "hash"
				}
			},
			"meta": {
				"err": null,
				"preTokenBalances": [{"accountIndex":1,"mint":"m","owner":"o","uiTokenAmount":{"amount":"10","decimals":6,"uiAmount":0.00001,"uiAmountString":"0.00001"}}],
				"postTokenBalances": [{"accountIndex":1,"mint":"m","owner":"o","uiTokenAmount":{"amount":"20","decimals":6,"uiAmount":null,"uiAmountString":"0.00002"}}]
			}
		}}`
	})

	res, err := newTestClient(srv.URL).GetTransaction(context.Background(), "sigA")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, uint64(42), res.Slot)
	require.Len(t, res.Transaction.Message.Instructions, 2)
	assert.Equal(t, []string{"a", "b"}, res.Transaction.Message.Instructions[0].Accounts)
	assert.NotEmpty(t, res.Transaction.Message.Instructions[1].Parsed)
	assert.Equal(t, "o", res.Meta.PreTokenBalances[0].Owner)
	assert.Equal(t, 0.0, res.Meta.PostTokenBalances[0].UITokenAmount.UIAmount)
}

func TestCall_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":1500000000}}`)
	}))
	defer srv.Close()

	lamports, err := newTestClient(srv.URL).GetBalance(context.Background(), "addr", "confirmed")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), lamports)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCall_GivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetSignatureState(context.Background(), "sig")
	assert.ErrorContains(t, err, "max retries exceeded")
}
