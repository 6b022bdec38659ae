package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fastlog-app/fastlog-backend/app/models"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/entitlements"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service reconciles provider billing events onto persisted profiles.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// WithClock replaces the time source, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GrantOnCheckout extends paid access after a completed checkout. paid_until
// is assigned absolutely (now + grant window), so replays inside a short
// window leave the same result. The customer id is linked only once.
func (s *Service) GrantOnCheckout(ctx context.Context, in CheckoutCompletion) error {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return fmt.Errorf("%w: checkout session %q carries no user id", ErrCorrelationMiss, in.SessionID)
	}
	// profiles.id is a uuid column; anything else can never match a row.
	if _, err := uuid.Parse(userID); err != nil {
		return fmt.Errorf("%w: user id %q is not a uuid", ErrCorrelationMiss, userID)
	}

	profile, err := s.repo.GetProfileByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no profile for user %q", ErrCorrelationMiss, userID)
		}
		return fmt.Errorf("%w: load profile %q: %v", ErrPersistence, userID, err)
	}

	fields := map[string]interface{}{
		ColumnPaidUntil: entitlements.GrantUntil(s.now()),
	}
	customerID := strings.TrimSpace(in.CustomerID)
	if customerID != "" && profile.CustomerID() == "" {
		fields[ColumnPaymentCustomerID] = customerID
	}

	_, linking := fields[ColumnPaymentCustomerID]
	err = s.repo.UpdateProfileFields(ctx, userID, fields)
	if linking && errors.Is(err, gorm.ErrDuplicatedKey) {
		log.Warnw("billing: customer already linked to another profile, granting without link",
			"user_id", userID,
			"customer_id", customerID,
		)
		delete(fields, ColumnPaymentCustomerID)
		customerID = ""
		err = s.repo.UpdateProfileFields(ctx, userID, fields)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: profile %q vanished", ErrCorrelationMiss, userID)
		}
		return fmt.Errorf("%w: grant for %q: %v", ErrPersistence, userID, err)
	}

	log.Infow("billing: entitlement granted",
		"user_id", userID,
		"customer_id", customerID,
		"paid_until", fields[ColumnPaidUntil],
	)
	return nil
}

// ApplySubscriptionStatus records the subscription flag for the profile
// linked to the event's customer: "active" stays active, anything else is
// recorded as cancelled. paid_until is not touched.
func (s *Service) ApplySubscriptionStatus(ctx context.Context, in SubscriptionChange) error {
	status := models.SubscriptionStatusCancelled
	if strings.EqualFold(strings.TrimSpace(in.Status), models.SubscriptionStatusActive) {
		status = models.SubscriptionStatusActive
	}
	return s.setStatusByCustomer(ctx, in.CustomerID, status)
}

// RevokeSubscription marks the linked profile's subscription as expired.
// paid_until is not touched.
func (s *Service) RevokeSubscription(ctx context.Context, in SubscriptionChange) error {
	return s.setStatusByCustomer(ctx, in.CustomerID, models.SubscriptionStatusExpired)
}

func (s *Service) setStatusByCustomer(ctx context.Context, customerID, status string) error {
	cid := strings.TrimSpace(customerID)
	if cid == "" {
		return fmt.Errorf("%w: event carries no customer id", ErrCorrelationMiss)
	}

	profile, err := s.repo.GetProfileByCustomerID(ctx, cid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no profile linked to customer %q", ErrCorrelationMiss, cid)
		}
		return fmt.Errorf("%w: load profile for customer %q: %v", ErrPersistence, cid, err)
	}

	if err := s.repo.UpdateProfileFields(ctx, profile.ID, map[string]interface{}{
		ColumnSubscriptionStatus: status,
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: profile %q vanished", ErrCorrelationMiss, profile.ID)
		}
		return fmt.Errorf("%w: set status for %q: %v", ErrPersistence, profile.ID, err)
	}

	log.Infow("billing: subscription status updated",
		"user_id", profile.ID,
		"customer_id", cid,
		"status", status,
	)
	return nil
}

// RecordWebhookEvent persists a verified webhook payload. created is false
// when the provider event id was seen before.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		Deliveries:      1,
	}
	created, stored, err := s.repo.CreateWebhookEventIfNotExists(ctx, event)
	if err != nil {
		return false, nil, fmt.Errorf("%w: record webhook event %q: %v", ErrPersistence, eventID, err)
	}
	return created, stored, nil
}

// MarkWebhookProcessed stores the reconciliation outcome on the event row.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, outcome Outcome, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(ctx, webhookEventID, string(outcome), errMsg)
}

// GetProfile loads a profile by user id.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return s.repo.GetProfileByID(ctx, strings.TrimSpace(userID))
}
