package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// recoveryInterval is how long the failover store waits before probing the
// primary again after it tripped.
const recoveryInterval = time.Minute

// FailoverStore serves from the primary store until it errors, then trips to
// the fallback and periodically retries the primary.
type FailoverStore struct {
	primary   Store
	fallback  Store
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (s *FailoverStore) trip(err error) {
	s.logger.Error().Err(err).Msg("primary snapshot cache failed, falling back to memory")
	s.isDown.Store(true)
	s.lastCheck.Store(time.Now().UnixNano())
}

func (s *FailoverStore) shouldRetryPrimary() bool {
	return time.Since(time.Unix(0, s.lastCheck.Load())) > recoveryInterval
}

func (s *FailoverStore) Get(ctx context.Context, key string) (string, bool, error) {
	if !s.isDown.Load() {
		val, ok, err := s.primary.Get(ctx, key)
		if err == nil {
			return val, ok, nil
		}
		s.trip(err)
	} else if s.shouldRetryPrimary() {
		val, ok, err := s.primary.Get(ctx, key)
		if err == nil {
			s.isDown.Store(false)
			return val, ok, nil
		}
		s.lastCheck.Store(time.Now().UnixNano())
	}

	return s.fallback.Get(ctx, key)
}

func (s *FailoverStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if !s.isDown.Load() {
		err := s.primary.Set(ctx, key, value, ttl)
		if err == nil {
			return nil
		}
		s.trip(err)
	}

	return s.fallback.Set(ctx, key, value, ttl)
}
