package models

import (
	"strings"
	"time"
)

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
)

// Profile is the per-user row of the mobile app. Rows are created at signup;
// the billing reconciler only ever touches PaidUntil, SubscriptionStatus and
// PaymentCustomerID.
type Profile struct {
	ID                 string     `gorm:"type:uuid;primaryKey" json:"id"`
	Email              string     `gorm:"type:varchar(200);index" json:"email"`
	DisplayName        string     `gorm:"type:varchar(150);default:''" json:"display_name"`
	PaidUntil          *time.Time `gorm:"type:timestamptz;default:null" json:"paid_until,omitempty"`
	SubscriptionStatus *string    `gorm:"type:varchar(32);default:null;index" json:"subscription_status,omitempty"`
	PaymentCustomerID  *string    `gorm:"type:varchar(191);default:null;uniqueIndex" json:"payment_customer_id,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// Status returns the informational subscription flag, or "" when unset.
func (p *Profile) Status() string {
	if p == nil || p.SubscriptionStatus == nil {
		return ""
	}
	return *p.SubscriptionStatus
}

// CustomerID returns the linked billing customer id, or "" when the profile
// has not been correlated yet.
func (p *Profile) CustomerID() string {
	if p == nil || p.PaymentCustomerID == nil {
		return ""
	}
	return strings.TrimSpace(*p.PaymentCustomerID)
}

// IsValidSubscriptionStatus reports whether s is one of the persisted flags.
func IsValidSubscriptionStatus(s string) bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusCancelled, SubscriptionStatusExpired:
		return true
	default:
		return false
	}
}
