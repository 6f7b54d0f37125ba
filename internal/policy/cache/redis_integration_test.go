//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"docverify/internal/policy/cache"
	"docverify/internal/policy/models"
	"docverify/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = cache.NewRedisCache(s.redis.Client, time.Minute, cache.WithKey("test:policy:snapshot"))
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestRoundTrip() {
	ctx := context.Background()

	s.Run("empty cache returns nil", func() {
		snap, err := s.cache.Get(ctx)
		s.Require().NoError(err)
		s.Nil(snap)
	})

	s.Run("stored snapshot keeps version and rules", func() {
		snap := models.NewSnapshot([]models.Policy{{
			Code: "KYC", Category: models.CategoryKYC, Active: true,
			Rules: []models.Rule{{
				Code: "id", Name: "ID", Weight: 2, Blocking: true, Active: true,
				Condition: models.RequiredDocument{DocumentTypes: []string{"passport", "national_id"}, AnyOf: true},
			}},
		}}, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
		s.Require().NoError(s.cache.Set(ctx, snap))

		got, err := s.cache.Get(ctx)
		s.Require().NoError(err)
		s.Require().NotNil(got)
		s.Equal(snap.Version, got.Version)
		s.True(snap.TakenAt.Equal(got.TakenAt))
		s.Equal(snap.Rules, got.Rules)
	})

	s.Run("invalidate clears the key", func() {
		s.Require().NoError(s.cache.Invalidate(ctx))
		snap, err := s.cache.Get(ctx)
		s.Require().NoError(err)
		s.Nil(snap)
	})
}
