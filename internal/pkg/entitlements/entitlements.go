package entitlements

import (
	"math"
	"time"

	"github.com/fastlog-app/fastlog-backend/app/models"
)

// GrantWindow is how long a completed checkout unlocks paid access. It is a
// business constant and does not depend on the plan or the amount paid.
const GrantWindow = 200 * 24 * time.Hour

// GrantUntil returns the absolute paid-until timestamp for a grant at now.
func GrantUntil(now time.Time) time.Time {
	return now.Add(GrantWindow).UTC()
}

// IsActive reports whether paid access is active: now < paidUntil.
func IsActive(paidUntil *time.Time, now time.Time) bool {
	return paidUntil != nil && now.Before(*paidUntil)
}

// State is the derived entitlement of a profile at a given instant.
type State struct {
	UserID             string     `json:"user_id"`
	Active             bool       `json:"active"`
	PaidUntil          *time.Time `json:"paid_until"`
	SubscriptionStatus string     `json:"subscription_status"`
	DaysRemaining      int        `json:"days_remaining"`
}

// Evaluate computes the entitlement state of p. The subscription status flag
// is informational only; PaidUntil is authoritative.
func Evaluate(p *models.Profile, now time.Time) State {
	if p == nil {
		return State{}
	}
	st := State{
		UserID:             p.ID,
		Active:             IsActive(p.PaidUntil, now),
		PaidUntil:          p.PaidUntil,
		SubscriptionStatus: p.Status(),
	}
	if st.Active {
		st.DaysRemaining = int(math.Ceil(p.PaidUntil.Sub(now).Hours() / 24))
	}
	return st
}
