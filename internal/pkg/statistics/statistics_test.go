package statistics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fastlog-app/fastlog-backend/app/models"
	"github.com/fastlog-app/fastlog-backend/app/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProfiles struct {
	repository.ProfileRepository
	countCalls int
	daily      []models.DailyStats
	err        error
}

func (s *stubProfiles) Count(context.Context) (int64, error) {
	s.countCalls++
	return 10, s.err
}
func (s *stubProfiles) CountEntitled(context.Context, time.Time) (int64, error) { return 4, nil }
func (s *stubProfiles) CountLinked(context.Context) (int64, error)              { return 6, nil }
func (s *stubProfiles) CountByStatus(context.Context) (map[string]int64, error) {
	return map[string]int64{"active": 3, "expired": 1, "none": 6}, nil
}
func (s *stubProfiles) GetDailySignups(context.Context, time.Time, time.Time) ([]models.DailyStats, error) {
	return s.daily, nil
}

type stubFasts struct {
	repository.FastRepository
}

func (stubFasts) Count(context.Context) (int64, error)               { return 20, nil }
func (stubFasts) CountCompleted(context.Context) (int64, error)      { return 18, nil }
func (stubFasts) CountActive(context.Context) (int64, error)         { return 2, nil }
func (stubFasts) AvgCompletedHours(context.Context) (float64, error) { return 15.5, nil }

type mapCache struct {
	data    map[string][]byte
	failGet error
}

func (m *mapCache) GetJSON(_ context.Context, key string, v interface{}) error {
	if m.failGet != nil {
		return m.failGet
	}
	b, ok := m.data[key]
	if !ok {
		return redis.Nil
	}
	return json.Unmarshal(b, v)
}

func (m *mapCache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

func (m *mapCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func newTestService(profiles *stubProfiles, c Cache) *Service {
	s := NewService(&repository.Repositories{Profile: profiles, Fast: stubFasts{}}, c)
	s.now = func() time.Time { return time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC) }
	return s
}

func TestCompute(t *testing.T) {
	profiles := &stubProfiles{daily: []models.DailyStats{{Date: "2026-03-05", Count: 2}, {Date: "2026-03-10", Count: 1}}}
	s := newTestService(profiles, nil)

	stats, err := s.Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(10), stats.TotalProfiles)
	assert.Equal(t, int64(4), stats.EntitledProfiles)
	assert.Equal(t, int64(6), stats.LinkedCustomers)
	assert.Equal(t, int64(3), stats.StatusCounts["active"])
	assert.Equal(t, int64(20), stats.TotalFasts)
	assert.Equal(t, int64(18), stats.CompletedFasts)
	assert.Equal(t, int64(2), stats.ActiveFasts)
	assert.InDelta(t, 15.5, stats.AvgCompletedHours, 0.001)

	require.Len(t, stats.NewProfilesLast7Days, 7)
	assert.Equal(t, "2026-03-04", stats.NewProfilesLast7Days[0].Date)
	assert.Equal(t, 0, stats.NewProfilesLast7Days[0].Count)
	assert.Equal(t, 2, stats.NewProfilesLast7Days[1].Count)
	assert.Equal(t, models.DailyStats{Date: "2026-03-10", Count: 1}, stats.NewProfilesLast7Days[6])
}

type stubOutcomes struct{ err error }

func (o stubOutcomes) WebhookOutcomes(context.Context) (map[string]int64, error) {
	if o.err != nil {
		return nil, o.err
	}
	return map[string]int64{"invoice.paid|ignored": 4}, nil
}

func TestCompute_WebhookOutcomes(t *testing.T) {
	s := newTestService(&stubProfiles{}, nil).WithOutcomeSource(stubOutcomes{})
	stats, err := s.Compute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.WebhookOutcomes["invoice.paid|ignored"])

	s = newTestService(&stubProfiles{}, nil).WithOutcomeSource(stubOutcomes{err: errors.New("redis down")})
	stats, err = s.Compute(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stats.WebhookOutcomes)
}

func TestAdminStats_CachesResult(t *testing.T) {
	profiles := &stubProfiles{}
	c := &mapCache{data: map[string][]byte{}}
	s := newTestService(profiles, c)

	_, err := s.AdminStats(context.Background())
	require.NoError(t, err)
	second, err := s.AdminStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, profiles.countCalls)
	assert.Equal(t, int64(10), second.TotalProfiles)

	s.Invalidate(context.Background())
	_, err = s.AdminStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, profiles.countCalls)
}

func TestAdminStats_CacheFailureFallsBack(t *testing.T) {
	profiles := &stubProfiles{}
	s := newTestService(profiles, &mapCache{data: map[string][]byte{}, failGet: errors.New("connection refused")})

	stats, err := s.AdminStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalProfiles)
}

func TestAdminStats_QueryFailure(t *testing.T) {
	s := newTestService(&stubProfiles{err: errors.New("db down")}, nil)

	_, err := s.AdminStats(context.Background())
	assert.Error(t, err)
}
