// Package artifacts keeps the raw HTML of a page alive in Redis while it is
// being processed. A crashed run leaves its artifact behind for inspection;
// the TTL is a safety net so abandoned artifacts do not accumulate forever.
package artifacts

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"azubimine/internal/config"
	"azubimine/internal/errors"
)

const keyPrefix = "artifact:"

type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewStore(cfg *config.Config, client *redis.Client, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		ttl:    cfg.ArtifactTTL,
		logger: logger,
	}
}

// Put stores the raw page under its posting link before extraction begins.
func (s *Store) Put(ctx context.Context, originalLink, rawHTML string) error {
	if err := s.client.Set(ctx, keyPrefix+originalLink, rawHTML, s.ttl).Err(); err != nil {
		return errors.Transient("storing page artifact", err)
	}
	return nil
}

// Get returns the stored raw page, or a NotFound error.
func (s *Store) Get(ctx context.Context, originalLink string) (string, error) {
	raw, err := s.client.Get(ctx, keyPrefix+originalLink).Result()
	if err == redis.Nil {
		return "", errors.NotFound("no artifact stored", err)
	}
	if err != nil {
		return "", errors.Transient("loading page artifact", err)
	}
	return raw, nil
}

// Delete drops the artifact once the posting is safely persisted. Failures
// are logged, not propagated: the TTL cleans up what we could not.
func (s *Store) Delete(ctx context.Context, originalLink string) {
	if err := s.client.Del(ctx, keyPrefix+originalLink).Err(); err != nil {
		s.logger.Debug("artifact delete failed, expiring via TTL",
			zap.String("link", originalLink),
			zap.Error(err))
	}
}
