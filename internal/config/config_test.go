package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PRIVATE_KEY", "")
	t.Setenv("STREAM_PROVIDER", "")

	cfg := Load()
	assert.Equal(t, "websocket", cfg.StreamProvider)
	assert.Equal(t, 256, cfg.MaxInflight)
	assert.Equal(t, 30*time.Second, cfg.PingInterval)
	assert.Equal(t, 60*time.Second, cfg.PriceRefresh)
	assert.False(t, cfg.SubmitTx)
	assert.Equal(t, "file", cfg.LedgerBackend)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MAX_AMOUNT", "2.5")
	t.Setenv("IS_RACING", "true")
	t.Setenv("TIP_FACTOR_ULTRA", "40")
	t.Setenv("PING_INTERVAL", "5s")

	cfg := Load()
	assert.Equal(t, 2.5, cfg.Sizing.MaxAmount)
	assert.True(t, cfg.Racing)
	assert.Equal(t, 40.0, cfg.Sizing.TipFactorUltra)
	assert.Equal(t, 5*time.Second, cfg.PingInterval)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.PrivateKey = ""
	assert.Error(t, cfg.Validate())

	cfg.PrivateKey = "key"
	cfg.StreamProvider = "websocket"
	cfg.FeedEndpoint = ""
	assert.Error(t, cfg.Validate())

	cfg.FeedEndpoint = "wss://example.invalid"
	cfg.LedgerBackend = "redis"
	cfg.RedisAddr = ""
	assert.Error(t, cfg.Validate())

	cfg.LedgerBackend = "file"
	cfg.Sizing.MaxAmount = 1
	cfg.MaxInflight = 4
	assert.NoError(t, cfg.Validate())

	cfg.StreamProvider = "grpc"
	assert.Error(t, cfg.Validate())
}

func TestLoadAddressList(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "pools.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`["A","B","A"]`), 0o644))
	list, err := LoadAddressList(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, list)

	txtPath := filepath.Join(dir, "watched.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("# watched\nC\n\n D \n"), 0o644))
	list, err = LoadAddressList(txtPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D"}, list)

	list, err = LoadAddressList("")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = LoadAddressList(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	set := AddressSet([]string{"C", "D"})
	_, ok := set["C"]
	assert.True(t, ok)
}
