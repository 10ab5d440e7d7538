package flags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"
)

// hashKey holds every switch as one field; the snapshot reads them in a single HGETALL.
const hashKey = "trader:flags"

var keyRe = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)

// Store keeps boolean switches in a Redis hash of JSON-encoded Flag values.
type Store struct {
	client redis.Cmdable
}

func NewStore(client redis.Cmdable) (*Store, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	return &Store{client: client}, nil
}

func ValidateKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("invalid flag key %q", key)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, key string, value bool) (*Flag, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	flag := &Flag{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	raw, err := json.Marshal(flag)
	if err != nil {
		return nil, fmt.Errorf("encode flag %s: %w", key, err)
	}
	if err := s.client.HSet(ctx, hashKey, key, raw).Err(); err != nil {
		return nil, fmt.Errorf("write flag %s: %w", key, err)
	}
	return flag, nil
}

func (s *Store) Get(ctx context.Context, key string) (*Flag, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	raw, err := s.client.HGet(ctx, hashKey, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read flag %s: %w", key, err)
	}
	return decodeFlag(key, raw)
}

// List returns every stored flag. Fields that fail to decode are skipped.
func (s *Store) List(ctx context.Context) ([]*Flag, error) {
	fields, err := s.client.HGetAll(ctx, hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read flags: %w", err)
	}

	out := make([]*Flag, 0, len(fields))
	for key, raw := range fields {
		if f, err := decodeFlag(key, []byte(raw)); err == nil {
			out = append(out, f)
		}
	}
	return out, nil
}

// Values flattens List into key -> value.
func (s *Store) Values(ctx context.Context) (map[string]bool, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(list))
	for _, f := range list {
		out[f.Key] = f.Value
	}
	return out, nil
}

// Delete removes key. Deleting an unknown key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := s.client.HDel(ctx, hashKey, key).Err(); err != nil {
		return fmt.Errorf("delete flag %s: %w", key, err)
	}
	return nil
}

func decodeFlag(key string, raw []byte) (*Flag, error) {
	var f Flag
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode flag %s: %w", key, err)
	}
	if f.Key == "" {
		f.Key = key
	}
	return &f, nil
}
