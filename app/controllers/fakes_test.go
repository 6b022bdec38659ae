package controllers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/fastlog-app/fastlog-backend/app/models"
	"github.com/fastlog-app/fastlog-backend/app/repository"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/billing"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// fakeStore backs both the billing repository and the profile/fast
// repositories with in-memory maps.
type fakeStore struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
	fasts    []models.Fast
	events   map[string]*models.BillingWebhookEvent
	calls    int
	failWith error
}

func newFakeStore(profiles ...models.Profile) *fakeStore {
	s := &fakeStore{
		profiles: map[string]*models.Profile{},
		events:   map[string]*models.BillingWebhookEvent{},
	}
	for i := range profiles {
		p := profiles[i]
		s.profiles[p.ID] = &p
	}
	return s
}

func (s *fakeStore) profile(id string) *models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.profiles[id]
	return &cp
}

func (s *fakeStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeStore) hit() error {
	s.calls++
	return s.failWith
}

// billing.Repository

func (s *fakeStore) GetProfileByID(_ context.Context, id string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(); err != nil {
		return nil, err
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) GetProfileByCustomerID(_ context.Context, customerID string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(); err != nil {
		return nil, err
	}
	for _, p := range s.profiles {
		if p.CustomerID() == customerID && customerID != "" {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeStore) UpdateProfileFields(_ context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(); err != nil {
		return err
	}
	p, ok := s.profiles[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := fields[billing.ColumnPaidUntil].(time.Time); ok {
		p.PaidUntil = &v
	}
	if v, ok := fields[billing.ColumnSubscriptionStatus].(string); ok {
		p.SubscriptionStatus = &v
	}
	if v, ok := fields[billing.ColumnPaymentCustomerID].(string); ok {
		p.PaymentCustomerID = &v
	}
	return nil
}

func (s *fakeStore) CreateWebhookEventIfNotExists(_ context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(); err != nil {
		return false, nil, err
	}
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := s.events[key]; ok {
		stored.Deliveries++
		cp := *stored
		return false, &cp, nil
	}
	stored := *event
	stored.ID = uint(len(s.events) + 1)
	s.events[key] = &stored
	cp := stored
	return true, &cp, nil
}

func (s *fakeStore) MarkWebhookProcessed(_ context.Context, id uint, outcome, processingError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.Outcome = outcome
			e.ProcessingError = processingError
		}
	}
	return nil
}

func (s *fakeStore) event(id string) *models.BillingWebhookEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[models.BillingProviderStripe+"/"+id]
}

// profileReadFailure records webhook events but fails profile reads.
type profileReadFailure struct {
	*fakeStore
}

func (profileReadFailure) GetProfileByID(context.Context, string) (*models.Profile, error) {
	return nil, errors.New("connection reset")
}

// repository.ProfileRepository

type fakeProfiles struct{ *fakeStore }

func (f fakeProfiles) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return f.GetProfileByID(ctx, id)
}

func (f fakeProfiles) all() []models.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		out = append(out, *p)
	}
	return out
}

func pageOf(ps []models.Profile, offset, limit int) []models.Profile {
	if offset >= len(ps) {
		return nil
	}
	end := offset + limit
	if end > len(ps) {
		end = len(ps)
	}
	return ps[offset:end]
}

func (f fakeProfiles) List(_ context.Context, offset, limit int) ([]models.Profile, error) {
	return pageOf(f.all(), offset, limit), nil
}

func (f fakeProfiles) Count(context.Context) (int64, error) {
	return int64(len(f.all())), nil
}

func (f fakeProfiles) matching(query string) []models.Profile {
	var out []models.Profile
	for _, p := range f.all() {
		if strings.Contains(strings.ToLower(p.Email), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out
}

func (f fakeProfiles) Search(_ context.Context, query string, offset, limit int) ([]models.Profile, error) {
	return pageOf(f.matching(query), offset, limit), nil
}

func (f fakeProfiles) CountSearch(_ context.Context, query string) (int64, error) {
	return int64(len(f.matching(query))), nil
}

func (f fakeProfiles) CountByStatus(context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, p := range f.all() {
		st := p.Status()
		if st == "" {
			st = "none"
		}
		counts[st]++
	}
	return counts, nil
}

func (f fakeProfiles) CountEntitled(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, p := range f.all() {
		if p.PaidUntil != nil && now.Before(*p.PaidUntil) {
			n++
		}
	}
	return n, nil
}

func (f fakeProfiles) CountLinked(context.Context) (int64, error) {
	var n int64
	for _, p := range f.all() {
		if p.CustomerID() != "" {
			n++
		}
	}
	return n, nil
}

func (f fakeProfiles) GetDailySignups(context.Context, time.Time, time.Time) ([]models.DailyStats, error) {
	return nil, nil
}

// repository.FastRepository

type fakeFasts struct{ *fakeStore }

func (f fakeFasts) Count(context.Context) (int64, error) { return int64(len(f.fasts)), nil }

func (f fakeFasts) CountCompleted(context.Context) (int64, error) {
	var n int64
	for _, fa := range f.fasts {
		if fa.IsCompleted() {
			n++
		}
	}
	return n, nil
}

func (f fakeFasts) CountActive(ctx context.Context) (int64, error) {
	done, _ := f.CountCompleted(ctx)
	return int64(len(f.fasts)) - done, nil
}

func (f fakeFasts) AvgCompletedHours(context.Context) (float64, error) { return 0, nil }

func (f fakeFasts) CountByUser(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, fa := range f.fasts {
		if fa.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f fakeFasts) ListRecentByUser(_ context.Context, userID string, limit int) ([]models.Fast, error) {
	var out []models.Fast
	for _, fa := range f.fasts {
		if fa.UserID == userID && len(out) < limit {
			out = append(out, fa)
		}
	}
	return out, nil
}

func (s *fakeStore) repositories() *repository.Repositories {
	return &repository.Repositories{
		Profile: fakeProfiles{s},
		Fast:    fakeFasts{s},
	}
}

// billing.Gateway

type fakeGateway struct {
	checkoutIn billing.CheckoutSessionInput
	portalFor  string
	err        error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, in billing.CheckoutSessionInput) (*billing.HostedSession, error) {
	g.checkoutIn = in
	if g.err != nil {
		return nil, g.err
	}
	return &billing.HostedSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

func (g *fakeGateway) CreatePortalSession(_ context.Context, customerID, _ string) (*billing.HostedSession, error) {
	g.portalFor = customerID
	if g.err != nil {
		return nil, g.err
	}
	return &billing.HostedSession{ID: "bps_1", URL: "https://billing.stripe.com/p/session/bps_1"}, nil
}

// asUser installs a fixed principal in place of the bearer middleware.
func asUser(userID, email string, admin bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     userID,
			Email:      email,
			IsLoggedIn: true,
			IsAdmin:    admin,
		})
		return c.Next()
	}
}
