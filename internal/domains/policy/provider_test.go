package policy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circulation-backend/internal/config"
	"circulation-backend/internal/domains/policy"
)

func testPolicyConfig() config.PolicyConfig {
	return config.PolicyConfig{
		DefaultMaxBorrowLimit:    5,
		DefaultBorrowDuration:    14,
		DefaultMaxRenewals:       2,
		DefaultReservationExpiry: 7,
		CacheTTLMinutes:          10,
	}
}

// fakeCache stores entries in a map and counts accesses.
type fakeCache struct {
	entries  map[string]*policy.ReaderPolicy
	gets     int
	sets     int
	failGets bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*policy.ReaderPolicy)}
}

func (c *fakeCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.gets++
	if c.failGets {
		return false, errors.New("cache down")
	}
	p, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	*dest.(*policy.ReaderPolicy) = *p
	return true, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.sets++
	if c.failGets {
		return errors.New("cache down")
	}
	p := *value.(*policy.ReaderPolicy)
	c.entries[key] = &p
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

// countingSource wraps the static source and counts lookups.
type countingSource struct {
	inner policy.Provider
	calls int
}

func (s *countingSource) GetPolicy(ctx context.Context, readerClass string) (*policy.ReaderPolicy, error) {
	s.calls++
	return s.inner.GetPolicy(ctx, readerClass)
}

func TestStaticSourceFallsBackToDefault(t *testing.T) {
	source := policy.NewStaticSource(testPolicyConfig())

	p, err := source.GetPolicy(context.Background(), "faculty")
	require.NoError(t, err)
	assert.Equal(t, "faculty", p.ReaderClass)
	assert.Equal(t, 5, p.MaxBorrowLimit)
	assert.Equal(t, 14, p.BorrowDurationDays)
	assert.Equal(t, 2, p.MaxRenewals)
	assert.Equal(t, 7, p.ReservationExpiryDays)
}

func TestCachedProviderReadThrough(t *testing.T) {
	source := &countingSource{inner: policy.NewStaticSource(testPolicyConfig())}
	c := newFakeCache()
	provider := policy.NewCachedProvider(source, c, 10*time.Minute)

	first, err := provider.GetPolicy(context.Background(), "standard")
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, c.sets)

	second, err := provider.GetPolicy(context.Background(), "standard")
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls, "second read must come from cache")
	assert.Equal(t, first.MaxBorrowLimit, second.MaxBorrowLimit)
}

func TestCachedProviderDegradesWhenCacheFails(t *testing.T) {
	source := &countingSource{inner: policy.NewStaticSource(testPolicyConfig())}
	c := newFakeCache()
	c.failGets = true
	provider := policy.NewCachedProvider(source, c, 10*time.Minute)

	p, err := provider.GetPolicy(context.Background(), "standard")
	require.NoError(t, err, "a broken cache must not fail policy reads")
	assert.Equal(t, 14, p.BorrowDurationDays)
	assert.Equal(t, 1, source.calls)
}
