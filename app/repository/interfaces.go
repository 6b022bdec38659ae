package repository

import (
	"context"
	"time"

	"github.com/fastlog-app/fastlog-backend/app/models"
	"gorm.io/gorm"
)

// ProfileRepository defines the interface for profile-related database operations
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	List(ctx context.Context, offset, limit int) ([]models.Profile, error)
	Count(ctx context.Context) (int64, error)
	Search(ctx context.Context, query string, offset, limit int) ([]models.Profile, error)
	CountSearch(ctx context.Context, query string) (int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	CountEntitled(ctx context.Context, now time.Time) (int64, error)
	CountLinked(ctx context.Context) (int64, error)
	GetDailySignups(ctx context.Context, startDate, endDate time.Time) ([]models.DailyStats, error)
}

// FastRepository defines read operations over logged fasts
type FastRepository interface {
	Count(ctx context.Context) (int64, error)
	CountCompleted(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	AvgCompletedHours(ctx context.Context) (float64, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]models.Fast, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Profile ProfileRepository
	Fast    FastRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Profile: NewProfileRepository(db),
		Fast:    NewFastRepository(db),
	}
}
