package cache

import (
	"context"
	"time"

	"butikpos/backend/internal/domain"
)

// SessionCartCache persists per-terminal cart snapshots so a restarted
// terminal can resume a sale in progress.
type SessionCartCache interface {
	Save(ctx context.Context, cart *domain.SessionCart, ttl time.Duration) error
	Load(ctx context.Context, terminalID string) (*domain.SessionCart, bool, error)
	Clear(ctx context.Context, terminalID string) error
}

type NoopSessionCartCache struct{}

func (NoopSessionCartCache) Save(_ context.Context, _ *domain.SessionCart, _ time.Duration) error {
	return nil
}

func (NoopSessionCartCache) Load(_ context.Context, _ string) (*domain.SessionCart, bool, error) {
	return nil, false, nil
}

func (NoopSessionCartCache) Clear(_ context.Context, _ string) error {
	return nil
}
