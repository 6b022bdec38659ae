package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fastlog-app/fastlog-backend/app/models"
	"gorm.io/gorm"
)

// profileRepository implements the ProfileRepository interface
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository instance
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// GetByID retrieves a profile by its user id
func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// List retrieves a paginated list of profiles, newest first
func (r *profileRepository) List(ctx context.Context, offset, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&profiles).Error
	return profiles, err
}

// Count returns the total number of profiles
func (r *profileRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).Count(&count).Error
	return count, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching query literally.
func containsPattern(query string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(query)) + "%"
}

func (r *profileRepository) searchScope(query string) func(*gorm.DB) *gorm.DB {
	searchPattern := containsPattern(query)
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(`email ILIKE ? ESCAPE '\' OR display_name ILIKE ? ESCAPE '\'`, searchPattern, searchPattern)
	}
}

// Search searches profiles by email or display name
func (r *profileRepository) Search(ctx context.Context, query string, offset, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.WithContext(ctx).Scopes(r.searchScope(query)).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&profiles).Error
	return profiles, err
}

// CountSearch returns the number of profiles matching query
func (r *profileRepository) CountSearch(ctx context.Context, query string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).Scopes(r.searchScope(query)).Count(&count).Error
	return count, err
}

// CountByStatus groups profiles by subscription status. Profiles without a
// status are reported under "none".
func (r *profileRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Profile{}).
		Select("COALESCE(subscription_status, 'none') AS status, COUNT(*) AS count").
		Group("COALESCE(subscription_status, 'none')").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count profiles by status: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountEntitled returns the number of profiles with paid access at now
func (r *profileRepository) CountEntitled(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).Where("paid_until > ?", now).Count(&count).Error
	return count, err
}

// CountLinked returns the number of profiles linked to a payment customer
func (r *profileRepository) CountLinked(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("payment_customer_id IS NOT NULL AND payment_customer_id <> ''").Count(&count).Error
	return count, err
}

// GetDailySignups returns daily profile creation counts for a date range
func (r *profileRepository) GetDailySignups(ctx context.Context, startDate, endDate time.Time) ([]models.DailyStats, error) {
	var results []struct {
		Date  string
		Count int64
	}

	err := r.db.WithContext(ctx).Model(&models.Profile{}).
		Select("to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS date, COUNT(*) AS count").
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("1").
		Order("date").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get daily signup stats: %w", err)
	}

	dailyStats := make([]models.DailyStats, len(results))
	for i, result := range results {
		dailyStats[i] = models.DailyStats{
			Date:  result.Date,
			Count: int(result.Count),
		}
	}
	return dailyStats, nil
}
