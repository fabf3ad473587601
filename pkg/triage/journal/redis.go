package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces journal keys.
const DefaultRedisPrefix = "triage:run:"

// RedisStore keeps records as JSON values with an expiry and a sorted-set
// index scored by creation time.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	closed atomic.Bool
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisTTL expires records after ttl. Zero keeps them forever.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

// WithRedisPrefix sets the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore connects to the Redis server at address.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(rdb, opts...)
}

// NewRedisStoreFromClient wraps an existing client.
// Close closes the client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: DefaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(runID string) string {
	return s.prefix + runID
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "index"
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	rec, err := prepare(rec)
	if err != nil {
		return err
	}
	rec.Path = pathOrEmpty(rec.Path)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode run record: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(rec.RunID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(rec.CreatedAt.UnixMilli()),
		Member: rec.RunID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save run record: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, runID string) (Record, error) {
	if s.closed.Load() {
		return Record{}, ErrStoreClosed
	}

	val, err := s.client.Get(ctx, s.key(runID)).Result()
	if errors.Is(err, backend.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load run record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return Record{}, fmt.Errorf("decode run record: %w", err)
	}
	return rec, nil
}

// List implements Store.
// Index entries older than the TTL are pruned first. Entries whose value
// has already expired are skipped.
func (s *RedisStore) List(ctx context.Context, limit int) ([]Record, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	if s.ttl > 0 {
		cutoff := time.Now().Add(-s.ttl).UnixMilli()
		if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", "("+strconv.FormatInt(cutoff, 10)).Err(); err != nil {
			return nil, fmt.Errorf("prune run index: %w", err)
		}
	}

	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, int64(normalizeLimit(limit)-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list run index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load run records: %w", err)
	}

	out := make([]Record, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode run record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.client.Close()
}
