package billing

import (
	"context"
	"sync"
	"time"

	"github.com/fastlog-app/fastlog-backend/app/models"
	"gorm.io/gorm"
)

const (
	userA       = "7d9f4c2a-1b3e-4f5a-8c6d-9e0f1a2b3c4d"
	userB       = "2e8b6d1f-4a3c-4b7e-9f1d-6c5a4b3e2d1f"
	userMissing = "9c3e7a5b-8d2f-4e6a-b1c9-0f8e7d6c5b4a"
)

// memoryRepository is an in-memory Repository used by the billing tests.
// payment_customer_id is unique across profiles, like the real table.
type memoryRepository struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
	events   map[string]*models.BillingWebhookEvent
	nextID   uint

	calls     int
	updates   int
	failWith  error
	failAfter int
}

func newMemoryRepository(profiles ...models.Profile) *memoryRepository {
	r := &memoryRepository{
		profiles: make(map[string]*models.Profile),
		events:   make(map[string]*models.BillingWebhookEvent),
	}
	for i := range profiles {
		p := profiles[i]
		r.profiles[p.ID] = &p
	}
	return r
}

func (r *memoryRepository) fail() error {
	r.calls++
	if r.failWith != nil && r.calls > r.failAfter {
		return r.failWith
	}
	return nil
}

func (r *memoryRepository) profile(id string) *models.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.profiles[id]
	return &cp
}

func (r *memoryRepository) GetProfileByID(_ context.Context, userID string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(); err != nil {
		return nil, err
	}
	p, ok := r.profiles[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memoryRepository) GetProfileByCustomerID(_ context.Context, customerID string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(); err != nil {
		return nil, err
	}
	for _, p := range r.profiles {
		if p.CustomerID() != "" && p.CustomerID() == customerID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryRepository) UpdateProfileFields(_ context.Context, userID string, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(); err != nil {
		return err
	}
	p, ok := r.profiles[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for col, v := range fields {
		switch col {
		case ColumnPaidUntil, ColumnSubscriptionStatus:
		case ColumnPaymentCustomerID:
			for id, other := range r.profiles {
				if id != userID && other.CustomerID() == v.(string) {
					return gorm.ErrDuplicatedKey
				}
			}
		default:
			return gorm.ErrInvalidField
		}
	}

	r.updates++
	for col, v := range fields {
		switch col {
		case ColumnPaidUntil:
			t := v.(time.Time)
			p.PaidUntil = &t
		case ColumnSubscriptionStatus:
			s := v.(string)
			p.SubscriptionStatus = &s
		case ColumnPaymentCustomerID:
			s := v.(string)
			p.PaymentCustomerID = &s
		}
	}
	return nil
}

func (r *memoryRepository) CreateWebhookEventIfNotExists(_ context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(); err != nil {
		return false, nil, err
	}
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		stored.Deliveries++
		cp := *stored
		return false, &cp, nil
	}
	r.nextID++
	stored := *event
	stored.ID = r.nextID
	r.events[key] = &stored
	cp := stored
	return true, &cp, nil
}

func (r *memoryRepository) MarkWebhookProcessed(_ context.Context, id uint, outcome, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.Outcome = outcome
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}
