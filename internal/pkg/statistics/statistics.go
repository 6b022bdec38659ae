package statistics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fastlog-app/fastlog-backend/app/models"
	"github.com/fastlog-app/fastlog-backend/app/repository"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/cache"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	CacheExpiration = 5 * time.Minute
	signupDays      = 7
)

// CacheKeyAdminStats is where the aggregate admin view is cached.
var CacheKeyAdminStats = cache.Key("statistics", "admin")

// Cache is the subset of the Redis cache the statistics need.
type Cache interface {
	GetJSON(ctx context.Context, key string, v interface{}) error
	SetJSON(ctx context.Context, key string, v interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

type redisCache struct{}

func (redisCache) GetJSON(ctx context.Context, key string, v interface{}) error {
	return cache.GetJSON(ctx, key, v)
}

func (redisCache) SetJSON(ctx context.Context, key string, v interface{}, expiration time.Duration) error {
	return cache.SetJSON(ctx, key, v, expiration)
}

func (redisCache) Delete(ctx context.Context, key string) error {
	return cache.Delete(ctx, key)
}

// RedisCache returns a Cache backed by the shared Redis client.
func RedisCache() Cache {
	return redisCache{}
}

// OutcomeSource reports webhook outcome counters keyed by "type|outcome".
type OutcomeSource interface {
	WebhookOutcomes(ctx context.Context) (map[string]int64, error)
}

// Service computes admin statistics from the repositories.
type Service struct {
	profiles repository.ProfileRepository
	fasts    repository.FastRepository
	cache    Cache
	outcomes OutcomeSource
	now      func() time.Time
}

// NewService creates a statistics service. c may be nil to disable caching.
func NewService(repos *repository.Repositories, c Cache) *Service {
	return &Service{
		profiles: repos.Profile,
		fasts:    repos.Fast,
		cache:    c,
		now:      time.Now,
	}
}

// WithOutcomeSource adds webhook outcome counters to the computed view.
func (s *Service) WithOutcomeSource(o OutcomeSource) *Service {
	s.outcomes = o
	return s
}

// AdminStats returns the cached aggregate view, computing and caching it on a
// miss. Cache failures degrade to a direct query.
func (s *Service) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	if s.cache != nil {
		var cached models.AdminStats
		err := s.cache.GetJSON(ctx, CacheKeyAdminStats, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, redis.Nil) {
			log.Warnw("statistics: cache read failed", "key", CacheKeyAdminStats, "error", err.Error())
		}
	}

	stats, err := s.Compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, CacheKeyAdminStats, stats, CacheExpiration); err != nil {
			log.Warnw("statistics: cache write failed", "key", CacheKeyAdminStats, "error", err.Error())
		}
	}
	return stats, nil
}

// Invalidate drops the cached view so the next read recomputes it.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, CacheKeyAdminStats); err != nil {
		log.Warnw("statistics: cache invalidation failed", "key", CacheKeyAdminStats, "error", err.Error())
	}
}

// Compute queries all aggregates directly.
func (s *Service) Compute(ctx context.Context) (*models.AdminStats, error) {
	now := s.now().UTC()
	stats := &models.AdminStats{GeneratedAt: now.Format(time.RFC3339)}
	var err error

	if stats.TotalProfiles, err = s.profiles.Count(ctx); err != nil {
		return nil, fmt.Errorf("count profiles: %w", err)
	}
	if stats.EntitledProfiles, err = s.profiles.CountEntitled(ctx, now); err != nil {
		return nil, fmt.Errorf("count entitled profiles: %w", err)
	}
	if stats.LinkedCustomers, err = s.profiles.CountLinked(ctx); err != nil {
		return nil, fmt.Errorf("count linked profiles: %w", err)
	}
	if stats.StatusCounts, err = s.profiles.CountByStatus(ctx); err != nil {
		return nil, err
	}
	if stats.TotalFasts, err = s.fasts.Count(ctx); err != nil {
		return nil, fmt.Errorf("count fasts: %w", err)
	}
	if stats.CompletedFasts, err = s.fasts.CountCompleted(ctx); err != nil {
		return nil, fmt.Errorf("count completed fasts: %w", err)
	}
	if stats.ActiveFasts, err = s.fasts.CountActive(ctx); err != nil {
		return nil, fmt.Errorf("count active fasts: %w", err)
	}
	if stats.AvgCompletedHours, err = s.fasts.AvgCompletedHours(ctx); err != nil {
		return nil, fmt.Errorf("average fast duration: %w", err)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -(signupDays - 1))
	daily, err := s.profiles.GetDailySignups(ctx, start, now)
	if err != nil {
		return nil, err
	}
	stats.NewProfilesLast7Days = fillDays(daily, start, signupDays)

	if s.outcomes != nil {
		if outcomes, err := s.outcomes.WebhookOutcomes(ctx); err != nil {
			log.Warnw("statistics: webhook counters unavailable", "error", err.Error())
		} else {
			stats.WebhookOutcomes = outcomes
		}
	}

	return stats, nil
}

// fillDays returns one bucket per day starting at start, zero where the
// query returned no row.
func fillDays(rows []models.DailyStats, start time.Time, days int) []models.DailyStats {
	byDate := make(map[string]int, len(rows))
	for _, r := range rows {
		byDate[r.Date] = r.Count
	}
	out := make([]models.DailyStats, days)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i).Format("2006-01-02")
		out[i] = models.DailyStats{Date: d, Count: byDate[d]}
	}
	return out
}
