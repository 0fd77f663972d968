//go:build integration

package ratelimit_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certus/internal/ratelimit"
	"certus/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *ratelimit.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = ratelimit.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestWindow() {
	ctx := context.Background()
	for i := range 3 {
		res, err := s.store.Allow(ctx, "verify:ip:10.0.0.1", 3, time.Second)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2-i, res.Remaining)
	}

	res, err := s.store.Allow(ctx, "verify:ip:10.0.0.1", 3, time.Second)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.False(res.ResetAt.IsZero())

	s.Eventually(func() bool {
		res, err := s.store.Allow(ctx, "verify:ip:10.0.0.1", 3, time.Second)
		return err == nil && res.Allowed
	}, 3*time.Second, 100*time.Millisecond)
}

func (s *RedisStoreSuite) TestKeysAreIndependent() {
	ctx := context.Background()
	_, err := s.store.Allow(ctx, "a", 1, time.Minute)
	s.Require().NoError(err)

	res, err := s.store.Allow(ctx, "b", 1, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *RedisStoreSuite) TestConcurrentCallersUnderLimit() {
	ctx := context.Background()
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 4 {
				if res, err := s.store.Allow(ctx, "burst", 50, time.Minute); err == nil && res.Allowed {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(20), allowed.Load())
}
