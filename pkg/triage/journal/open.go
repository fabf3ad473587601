package journal

import (
	"context"
	"fmt"

	"github.com/randalmurphal/triage/pkg/triage/config"
)

// Open builds the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.JournalConfig) (Store, error) {
	switch cfg.Backend {
	case config.JournalNone:
		return NopStore{}, nil
	case config.JournalMemory, "":
		return NewMemoryStore(WithMemoryCapacity(cfg.Capacity)), nil
	case config.JournalSQLite:
		return NewSQLiteStore(cfg.Path)
	case config.JournalRedis:
		s := NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, WithRedisTTL(cfg.TTL))
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case config.JournalPostgres:
		return NewPostgresStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.Backend)
	}
}
