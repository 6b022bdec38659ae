package billing

import (
	"context"
	"strings"
	"time"

	"github.com/fastlog-app/fastlog-backend/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Profile columns the reconciler is allowed to write.
const (
	ColumnPaidUntil          = "paid_until"
	ColumnSubscriptionStatus = "subscription_status"
	ColumnPaymentCustomerID  = "payment_customer_id"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetProfileByID(ctx context.Context, userID string) (*models.Profile, error)
	GetProfileByCustomerID(ctx context.Context, customerID string) (*models.Profile, error)
	UpdateProfileFields(ctx context.Context, userID string, fields map[string]interface{}) error
	CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, outcome, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetProfileByID(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetProfileByCustomerID(ctx context.Context, customerID string) (*models.Profile, error) {
	id := strings.TrimSpace(customerID)
	if id == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var p models.Profile
	if err := r.db.WithContext(ctx).Where("payment_customer_id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfileFields writes only the given columns so unrelated profile data
// is never overwritten. A missing row yields gorm.ErrRecordNotFound.
func (r *gormRepository) UpdateProfileFields(ctx context.Context, userID string, fields map[string]interface{}) error {
	for col := range fields {
		switch col {
		case ColumnPaidUntil, ColumnSubscriptionStatus, ColumnPaymentCustomerID:
		default:
			return gorm.ErrInvalidField
		}
	}
	tx := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", userID).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// webhookEventUpsert counts a repeated delivery on the existing row instead
// of inserting a second one.
func webhookEventUpsert(now time.Time) clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"deliveries": gorm.Expr("billing_webhook_events.deliveries + 1"),
			"updated_at": now,
		}),
	}
}

// CreateWebhookEventIfNotExists inserts event or bumps the delivery count of
// the stored row. created is true only for the first delivery.
func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	db := r.db.WithContext(ctx)
	tx := db.Clauses(webhookEventUpsert(time.Now())).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	var stored models.BillingWebhookEvent
	if err := db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return stored.Deliveries <= 1, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, outcome, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"outcome":          outcome,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
