package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-syr-auth/ratelimit"
)

func TestMemoryWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := ratelimit.NewMemory(2, time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i, want := range []bool{true, true, false, false} {
		ok, err := l.Allow(ctx, "login:alice")
		require.NoError(t, err)
		assert.Equal(t, want, ok, "attempt %d", i+1)
	}

	ok, _ := l.Allow(ctx, "login:bob")
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Minute)
	ok, _ = l.Allow(ctx, "login:alice")
	assert.True(t, ok, "window resets")
}

type MockRedis struct {
	mock.Mock
}

func (m *MockRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	args := m.Called(key)
	return redis.NewIntResult(args.Get(0).(int64), args.Error(1))
}

func (m *MockRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	args := m.Called(key, expiration)
	return redis.NewBoolResult(args.Bool(0), args.Error(1))
}

func TestRedisFirstHitSetsExpiry(t *testing.T) {
	m := new(MockRedis)
	m.On("Incr", "syr:ratelimit:login:alice").Return(int64(1), nil).Once()
	m.On("Expire", "syr:ratelimit:login:alice", time.Minute).Return(true, nil).Once()

	l := ratelimit.NewRedis(m, 3, time.Minute)
	ok, err := l.Allow(context.Background(), "login:alice")

	require.NoError(t, err)
	assert.True(t, ok)
	m.AssertExpectations(t)
}

func TestRedisOverLimit(t *testing.T) {
	m := new(MockRedis)
	m.On("Incr", "syr:ratelimit:login:alice").Return(int64(4), nil)

	l := ratelimit.NewRedis(m, 3, time.Minute)
	ok, err := l.Allow(context.Background(), "login:alice")

	require.NoError(t, err)
	assert.False(t, ok)
	m.AssertNotCalled(t, "Expire", mock.Anything, mock.Anything)
}

func TestRedisErrorsSurface(t *testing.T) {
	m := new(MockRedis)
	m.On("Incr", mock.Anything).Return(int64(0), errors.New("connection refused"))

	l := ratelimit.NewRedis(m, 3, time.Minute)
	_, err := l.Allow(context.Background(), "login:alice")
	assert.Error(t, err)
}
