package repository

import (
	"context"

	"github.com/fastlog-app/fastlog-backend/app/models"
	"gorm.io/gorm"
)

// fastRepository implements the FastRepository interface
type fastRepository struct {
	db *gorm.DB
}

// NewFastRepository creates a new fast repository instance
func NewFastRepository(db *gorm.DB) FastRepository {
	return &fastRepository{db: db}
}

func (r *fastRepository) count(ctx context.Context, scopes ...func(*gorm.DB) *gorm.DB) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Fast{}).Scopes(scopes...).Count(&count).Error
	return count, err
}

func completed(db *gorm.DB) *gorm.DB { return db.Where("ended_at IS NOT NULL") }

func inProgress(db *gorm.DB) *gorm.DB { return db.Where("ended_at IS NULL") }

// Count returns the total number of fasts
func (r *fastRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx)
}

// CountCompleted returns the number of ended fasts
func (r *fastRepository) CountCompleted(ctx context.Context) (int64, error) {
	return r.count(ctx, completed)
}

// CountActive returns the number of fasts still in progress
func (r *fastRepository) CountActive(ctx context.Context) (int64, error) {
	return r.count(ctx, inProgress)
}

// AvgCompletedHours returns the mean duration of ended fasts in hours
func (r *fastRepository) AvgCompletedHours(ctx context.Context) (float64, error) {
	var avg float64
	err := r.db.WithContext(ctx).Model(&models.Fast{}).Scopes(completed).
		Select("COALESCE(AVG(EXTRACT(EPOCH FROM (ended_at - started_at)) / 3600), 0)").
		Row().Scan(&avg)
	return avg, err
}

// CountByUser returns the number of fasts logged by userID
func (r *fastRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, func(db *gorm.DB) *gorm.DB { return db.Where("user_id = ?", userID) })
}

// ListRecentByUser returns the latest fasts of userID, newest first
func (r *fastRepository) ListRecentByUser(ctx context.Context, userID string, limit int) ([]models.Fast, error) {
	var fasts []models.Fast
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("started_at DESC").Limit(limit).Find(&fasts).Error
	return fasts, err
}
