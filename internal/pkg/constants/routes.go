package constants

// Route constants
const (
	APIPrefix    = "/api"
	APIV1Prefix  = "/v1"
	HealthRoute  = "/health"
	DocsBasePath = "/docs/api/"
	// Stripe retries failed deliveries on its own schedule; the webhook
	// stays outside the per-client limiter.
	WebhookRoute = APIPrefix + APIV1Prefix + "/billing/webhook"
)
