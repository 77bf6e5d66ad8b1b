package policy

import (
	"context"
	"fmt"
	"time"

	"circulation-backend/internal/config"
	"circulation-backend/pkg/cache"
	"circulation-backend/pkg/logger"
)

// ReaderPolicy is the per-reader-class loan policy consumed by the
// circulation engine. Durations drive due dates and reservation expiry;
// limits drive admission control.
type ReaderPolicy struct {
	ReaderClass           string `json:"reader_class"`
	MaxBorrowLimit        int    `json:"max_borrow_limit"`
	BorrowDurationDays    int    `json:"borrow_duration_days"`
	MaxRenewals           int    `json:"max_renewals"`
	ReservationExpiryDays int    `json:"reservation_expiry_days"`
}

// Provider supplies reader policies. Implementations may serve stale values
// no older than their refresh interval.
type Provider interface {
	GetPolicy(ctx context.Context, readerClass string) (*ReaderPolicy, error)
}

// ===================================
// STATIC SOURCE (config-backed)
// ===================================

// staticSource serves policies from configuration. Unknown classes fall back
// to the default policy rather than failing admission outright.
type staticSource struct {
	defaultPolicy ReaderPolicy
	byClass       map[string]ReaderPolicy
}

func NewStaticSource(cfg config.PolicyConfig) Provider {
	def := ReaderPolicy{
		ReaderClass:           "standard",
		MaxBorrowLimit:        cfg.DefaultMaxBorrowLimit,
		BorrowDurationDays:    cfg.DefaultBorrowDuration,
		MaxRenewals:           cfg.DefaultMaxRenewals,
		ReservationExpiryDays: cfg.DefaultReservationExpiry,
	}

	return &staticSource{
		defaultPolicy: def,
		byClass: map[string]ReaderPolicy{
			"standard": def,
		},
	}
}

func (s *staticSource) GetPolicy(_ context.Context, readerClass string) (*ReaderPolicy, error) {
	if p, ok := s.byClass[readerClass]; ok {
		out := p
		return &out, nil
	}

	out := s.defaultPolicy
	out.ReaderClass = readerClass
	return &out, nil
}

// ===================================
// CACHED PROVIDER (read-through)
// ===================================

// cachedProvider fronts a source with a TTL cache. A cache failure degrades
// to the source rather than failing the calling operation.
type cachedProvider struct {
	source Provider
	cache  cache.Cache
	ttl    time.Duration
}

func NewCachedProvider(source Provider, c cache.Cache, ttl time.Duration) Provider {
	return &cachedProvider{
		source: source,
		cache:  c,
		ttl:    ttl,
	}
}

func cacheKey(readerClass string) string {
	return fmt.Sprintf("policy:reader_class:%s", readerClass)
}

func (p *cachedProvider) GetPolicy(ctx context.Context, readerClass string) (*ReaderPolicy, error) {
	var cached ReaderPolicy
	found, err := p.cache.Get(ctx, cacheKey(readerClass), &cached)
	if err != nil {
		logger.Warn("policy cache read failed, falling back to source", map[string]interface{}{
			"reader_class": readerClass,
			"error":        err.Error(),
		})
	} else if found {
		return &cached, nil
	}

	policy, err := p.source.GetPolicy(ctx, readerClass)
	if err != nil {
		return nil, fmt.Errorf("policy source: %w", err)
	}

	if err := p.cache.Set(ctx, cacheKey(readerClass), policy, p.ttl); err != nil {
		logger.Warn("policy cache write failed", map[string]interface{}{
			"reader_class": readerClass,
			"error":        err.Error(),
		})
	}

	return policy, nil
}
