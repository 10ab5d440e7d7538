package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/rpc"
)

type fakePollClient struct {
	mu      sync.Mutex
	batches map[string][][]rpc.SignatureInfo
	opts    []map[string]interface{}
	txs     map[string]*rpc.TransactionResult
	sigErr  error
}

func (f *fakePollClient) GetSignaturesForAddress(_ context.Context, address string, opts map[string]interface{}) (*rpc.SignaturesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = append(f.opts, opts)
	if f.sigErr != nil {
		return nil, f.sigErr
	}
	queue := f.batches[address]
	if len(queue) == 0 {
		return &rpc.SignaturesResponse{}, nil
	}
	f.batches[address] = queue[1:]
	return &rpc.SignaturesResponse{Result: queue[0]}, nil
}

func (f *fakePollClient) GetTransaction(_ context.Context, signature string) (*rpc.TransactionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txs[signature], nil
}

func TestRPCPoller_SkipsHistoryThenEmitsOldestFirst(t *testing.T) {
	s1, s2, s3, failed := solana.Signature{1}, solana.Signature{2}, solana.Signature{3}, solana.Signature{4}
	pool := wsPool.String()

	client := &fakePollClient{
		batches: map[string][][]rpc.SignatureInfo{
			pool: {
				{{Signature: s1.String()}},
				{{Signature: s3.String()}, {Signature: failed.String(), Err: "boom"}, {Signature: s2.String()}},
			},
		},
		txs: map[string]*rpc.TransactionResult{
			s2.String(): sampleResult(s2),
			s3.String(): sampleResult(s3),
		},
	}
	poller := NewRPCPoller(RPCPollerConfig{RPCClient: client, PollInterval: time.Millisecond, Logger: quietLogger()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sess, err := poller.Subscribe(ctx, Filter{Include: []string{pool}})
	require.NoError(t, err)

	msg, err := sess.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, s2, msg.Tx.Signature)
	msg, err = sess.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, s3, msg.Tx.Signature)

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, 1, client.opts[0]["limit"], "first poll only primes the cursor")
	assert.Equal(t, s1.String(), client.opts[1]["until"])
}

func TestRPCPoller_PagesThroughBurst(t *testing.T) {
	s1, s2, s3, s4 := solana.Signature{1}, solana.Signature{2}, solana.Signature{3}, solana.Signature{4}
	pool := wsPool.String()

	client := &fakePollClient{
		batches: map[string][][]rpc.SignatureInfo{
			pool: {
				{{Signature: s1.String()}},
				{{Signature: s4.String()}, {Signature: s3.String()}},
				{{Signature: s2.String()}},
			},
		},
		txs: map[string]*rpc.TransactionResult{
			s2.String(): sampleResult(s2),
			s3.String(): sampleResult(s3),
			s4.String(): sampleResult(s4),
		},
	}
	poller := NewRPCPoller(RPCPollerConfig{RPCClient: client, PollInterval: time.Millisecond, BatchSize: 2, Logger: quietLogger()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sess, err := poller.Subscribe(ctx, Filter{Include: []string{pool}})
	require.NoError(t, err)

	for _, want := range []solana.Signature{s2, s3, s4} {
		msg, err := sess.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, msg.Tx.Signature)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	require.GreaterOrEqual(t, len(client.opts), 3)
	assert.Equal(t, s1.String(), client.opts[1]["until"])
	assert.NotContains(t, client.opts[1], "before")
	assert.Equal(t, s1.String(), client.opts[2]["until"])
	assert.Equal(t, s3.String(), client.opts[2]["before"])
}

func TestRPCPoller_ExcludedSigner(t *testing.T) {
	s1, s2 := solana.Signature{1}, solana.Signature{2}
	pool := wsPool.String()
	client := &fakePollClient{
		batches: map[string][][]rpc.SignatureInfo{pool: {{{Signature: s1.String()}}, {{Signature: s2.String()}}}},
		txs:     map[string]*rpc.TransactionResult{s2.String(): sampleResult(s2)},
	}
	poller := NewRPCPoller(RPCPollerConfig{RPCClient: client, PollInterval: time.Millisecond, Logger: quietLogger()})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	sess, err := poller.Subscribe(ctx, Filter{Include: []string{pool}, Exclude: []string{wsPayer.String()}})
	require.NoError(t, err)

	_, err = sess.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRPCPoller_RPCErrorsAreRetried(t *testing.T) {
	client := &fakePollClient{sigErr: errors.New("429"), batches: map[string][][]rpc.SignatureInfo{}}
	poller := NewRPCPoller(RPCPollerConfig{RPCClient: client, PollInterval: time.Millisecond, Logger: quietLogger()})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	sess, err := poller.Subscribe(ctx, Filter{Include: []string{"addr"}})
	require.NoError(t, err)

	_, err = sess.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Greater(t, len(client.opts), 1)
}

func TestRPCPoller_Validation(t *testing.T) {
	_, err := NewRPCPoller(RPCPollerConfig{}).Subscribe(context.Background(), Filter{Include: []string{"a"}})
	assert.Error(t, err)
	_, err = NewRPCPoller(RPCPollerConfig{RPCClient: &fakePollClient{}}).Subscribe(context.Background(), Filter{})
	assert.Error(t, err)
}
