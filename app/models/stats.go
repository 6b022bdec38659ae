package models

// DailyStats is a count bucket for a single calendar day (YYYY-MM-DD).
type DailyStats struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// AdminStats is the aggregate view served to administrators.
type AdminStats struct {
	TotalProfiles        int64            `json:"total_profiles"`
	EntitledProfiles     int64            `json:"entitled_profiles"`
	LinkedCustomers      int64            `json:"linked_customers"`
	StatusCounts         map[string]int64 `json:"status_counts"`
	TotalFasts           int64            `json:"total_fasts"`
	CompletedFasts       int64            `json:"completed_fasts"`
	ActiveFasts          int64            `json:"active_fasts"`
	AvgCompletedHours    float64          `json:"avg_completed_hours"`
	NewProfilesLast7Days []DailyStats     `json:"new_profiles_last_7_days"`
	WebhookOutcomes      map[string]int64 `json:"webhook_outcomes,omitempty"`
	GeneratedAt          string           `json:"generated_at"`
}
