package flags

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
	})
	return client
}

func TestStore_UpsertGetDelete(t *testing.T) {
	store, err := NewStore(setupTestRedis(t))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, KeyRacing)
	assert.Equal(t, ErrNotFound, err)

	flag, err := store.Upsert(ctx, KeyRacing, true)
	require.NoError(t, err)
	assert.Equal(t, KeyRacing, flag.Key)
	assert.NotZero(t, flag.UpdatedAt)

	got, err := store.Get(ctx, KeyRacing)
	require.NoError(t, err)
	assert.True(t, got.Value)
	assert.Equal(t, flag.UpdatedAt, got.UpdatedAt)

	require.NoError(t, store.Delete(ctx, KeyRacing))
	_, err = store.Get(ctx, KeyRacing)
	assert.Equal(t, ErrNotFound, err)

	assert.NoError(t, store.Delete(ctx, "never.set"))
}

func TestStore_Values(t *testing.T) {
	store, err := NewStore(setupTestRedis(t))
	require.NoError(t, err)
	ctx := context.Background()

	values, err := store.Values(ctx)
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = store.Upsert(ctx, KeySubmit, true)
	require.NoError(t, err)
	_, err = store.Upsert(ctx, KeyShowSell, false)
	require.NoError(t, err)

	values, err = store.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{KeySubmit: true, KeyShowSell: false}, values)
}

func TestStore_ListSkipsUndecodable(t *testing.T) {
	client := setupTestRedis(t)
	store, err := NewStore(client)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Upsert(ctx, KeyDebug, true)
	require.NoError(t, err)
	require.NoError(t, client.HSet(ctx, hashKey, "broken", "{not json").Err())

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, KeyDebug, list[0].Key)

	_, err = store.Get(ctx, "broken")
	assert.Error(t, err)
	assert.NotEqual(t, ErrNotFound, err)
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"trader.submit", "flag_1", "a", "x-y.z"} {
		assert.NoError(t, ValidateKey(key), key)
	}
	for _, key := range []string{"", " ", "with space", "with:colon", "tab\there"} {
		assert.Error(t, ValidateKey(key), key)
	}
}

func TestNewStore_NilClient(t *testing.T) {
	_, err := NewStore(nil)
	assert.Error(t, err)
}

type staticValues struct {
	values map[string]bool
	err    error
}

func (s *staticValues) Values(context.Context) (map[string]bool, error) {
	return s.values, s.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestSnapshot_OverridesDefaults(t *testing.T) {
	src := &staticValues{values: map[string]bool{KeySubmit: true, KeyShowBuy: false, "unrelated": true}}
	snap := NewSnapshot(SnapshotConfig{
		Source:   src,
		Defaults: Runtime{ShowBuy: true, ShowSell: true},
		Logger:   quietLogger(),
	})

	assert.Equal(t, Runtime{ShowBuy: true, ShowSell: true}, snap.Current())

	require.NoError(t, snap.Refresh(context.Background()))
	assert.Equal(t, Runtime{Submit: true, ShowBuy: false, ShowSell: true}, snap.Current())

	// Removing an override falls back to the default.
	src.values = map[string]bool{}
	require.NoError(t, snap.Refresh(context.Background()))
	assert.Equal(t, Runtime{ShowBuy: true, ShowSell: true}, snap.Current())
}

func TestSnapshot_KeepsLastOnError(t *testing.T) {
	src := &staticValues{values: map[string]bool{KeyRacing: true}}
	snap := NewSnapshot(SnapshotConfig{Source: src, Logger: quietLogger()})
	require.NoError(t, snap.Refresh(context.Background()))

	src.err = errors.New("redis down")
	assert.Error(t, snap.Refresh(context.Background()))
	assert.True(t, snap.Current().Racing)
}

func TestSnapshot_NilSource(t *testing.T) {
	snap := NewSnapshot(SnapshotConfig{Defaults: Runtime{Debug: true}, Logger: quietLogger()})
	assert.NoError(t, snap.Refresh(context.Background()))
	assert.True(t, snap.Current().Debug)
}

func TestSnapshot_RunStopsOnCancel(t *testing.T) {
	src := &staticValues{values: map[string]bool{KeySubmit: true}}
	snap := NewSnapshot(SnapshotConfig{Source: src, Interval: time.Millisecond, Logger: quietLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		snap.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return snap.Current().Submit }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
