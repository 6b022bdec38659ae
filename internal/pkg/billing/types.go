package billing

// EventKind is the reconciliation action a provider event maps to.
type EventKind string

const (
	EventKindCheckoutCompleted   EventKind = "checkout-completed"
	EventKindSubscriptionUpdated EventKind = "subscription-updated"
	EventKindSubscriptionDeleted EventKind = "subscription-deleted"
	EventKindUnrecognized        EventKind = "unrecognized"
)

// Outcome describes what reconciliation did with an event.
type Outcome string

const (
	OutcomeApplied         Outcome = "applied"
	OutcomeCorrelationMiss Outcome = "correlation_miss"
	OutcomeIgnored         Outcome = "ignored"
	OutcomeMalformed       Outcome = "malformed"
)

// MetadataUserIDKey is the checkout metadata key carrying the app user id.
// Sessions created by CreateCheckoutSession always set it.
const MetadataUserIDKey = "userId"

// CheckoutCompletion is the normalized payload of a completed checkout.
type CheckoutCompletion struct {
	UserID         string
	CustomerID     string
	SessionID      string
	SubscriptionID string
}

// SubscriptionChange is the normalized payload of a subscription lifecycle
// event. Only CustomerID is usable for correlation.
type SubscriptionChange struct {
	CustomerID     string
	SubscriptionID string
	Status         string
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
}

// CheckoutSessionInput carries what is needed to open a hosted checkout page
// for an app user.
type CheckoutSessionInput struct {
	UserID     string
	Email      string
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// HostedSession is the part of a provider-hosted page the app needs.
type HostedSession struct {
	ID  string `json:"id,omitempty"`
	URL string `json:"url"`
}
