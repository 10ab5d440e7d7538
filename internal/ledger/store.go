package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/constants"
)

// Store persists whole pool records. Save replaces the document.
type Store interface {
	Load(ctx context.Context, pool string) (*PoolRecord, error)
	Save(ctx context.Context, rec *PoolRecord) error
}

// TokenStore resolves swap addresses for a pool.
type TokenStore interface {
	LoadToken(ctx context.Context, pool string) (*TokenInfo, error)
	SaveToken(ctx context.Context, info *TokenInfo) error
}

func validPool(pool string) error {
	if pool == "" || strings.ContainsAny(pool, `/\.`) {
		return fmt.Errorf("%w: %q", ErrInvalidPool, pool)
	}
	return nil
}

// FileStore keeps one JSON file per pool under Dir, and token infos under TokenDir.
type FileStore struct {
	Dir      string
	TokenDir string
}

func NewFileStore(dir, tokenDir string) (*FileStore, error) {
	for _, d := range []string{dir, tokenDir} {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir %s: %w", d, err)
		}
	}
	return &FileStore{Dir: dir, TokenDir: tokenDir}, nil
}

func (s *FileStore) Load(_ context.Context, pool string) (*PoolRecord, error) {
	var rec PoolRecord
	if err := readJSON(s.Dir, pool, &rec); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, pool)
		}
		return nil, fmt.Errorf("load pool ledger: %w", err)
	}
	return &rec, nil
}

func (s *FileStore) Save(_ context.Context, rec *PoolRecord) error {
	if err := writeJSON(s.Dir, rec.PoolID, rec); err != nil {
		return fmt.Errorf("save pool ledger: %w", err)
	}
	return nil
}

func (s *FileStore) LoadToken(_ context.Context, pool string) (*TokenInfo, error) {
	var info TokenInfo
	if err := readJSON(s.TokenDir, pool, &info); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, pool)
		}
		return nil, fmt.Errorf("load token info: %w", err)
	}
	return &info, nil
}

func (s *FileStore) SaveToken(_ context.Context, info *TokenInfo) error {
	if err := writeJSON(s.TokenDir, info.ID, info); err != nil {
		return fmt.Errorf("save token info: %w", err)
	}
	return nil
}

func readJSON(dir, pool string, v any) error {
	if err := validPool(pool); err != nil {
		return err
	}
	b, err := os.ReadFile(filepath.Join(dir, pool+".json"))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// writeJSON replaces the document atomically via a temp file rename.
func writeJSON(dir, pool string, v any) error {
	if err := validPool(pool); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, pool+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, pool+".json"))
}

// RedisStore keeps pool records and token infos as JSON strings in Redis.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Load(ctx context.Context, pool string) (*PoolRecord, error) {
	var rec PoolRecord
	if err := s.get(ctx, constants.RedisKeyLedgerPrefix+pool, &rec); err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, pool)
		}
		return nil, fmt.Errorf("load pool ledger: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec *PoolRecord) error {
	if err := s.set(ctx, constants.RedisKeyLedgerPrefix+rec.PoolID, rec); err != nil {
		return fmt.Errorf("save pool ledger: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadToken(ctx context.Context, pool string) (*TokenInfo, error) {
	var info TokenInfo
	if err := s.get(ctx, constants.RedisKeyTokenPrefix+pool, &info); err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, pool)
		}
		return nil, fmt.Errorf("load token info: %w", err)
	}
	return &info, nil
}

func (s *RedisStore) SaveToken(ctx context.Context, info *TokenInfo) error {
	if err := s.set(ctx, constants.RedisKeyTokenPrefix+info.ID, info); err != nil {
		return fmt.Errorf("save token info: %w", err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, key string, v any) error {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), v)
}

func (s *RedisStore) set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, b, 0).Err()
}
