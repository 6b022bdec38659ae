package models

import "time"

// Fast is a single fasting session logged by the app. Read-only on the backend.
type Fast struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      string     `gorm:"type:uuid;not null;index" json:"user_id"`
	StartedAt   time.Time  `gorm:"type:timestamptz;not null;index" json:"started_at"`
	EndedAt     *time.Time `gorm:"type:timestamptz;default:null" json:"ended_at,omitempty"`
	TargetHours float64    `gorm:"not null;default:16" json:"target_hours"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Fast) TableName() string {
	return "fasts"
}

// IsCompleted reports whether the fast has been ended by the user.
func (f *Fast) IsCompleted() bool {
	return f.EndedAt != nil
}

// Duration returns the elapsed fasting time, measured up to now for fasts
// still in progress.
func (f *Fast) Duration(now time.Time) time.Duration {
	end := now
	if f.EndedAt != nil {
		end = *f.EndedAt
	}
	if end.Before(f.StartedAt) {
		return 0
	}
	return end.Sub(f.StartedAt)
}

// ReachedTarget reports whether a completed fast lasted at least TargetHours.
func (f *Fast) ReachedTarget() bool {
	if f.EndedAt == nil || f.TargetHours <= 0 {
		return false
	}
	return f.EndedAt.Sub(f.StartedAt).Hours() >= f.TargetHours
}
