package billing

import (
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Header names that may carry the Stripe signature, in lookup order.
var SignatureHeaders = []string{"Stripe-Signature", "Signature"}

// VerifyStripeWebhook authenticates payload against the signature header and
// returns the decoded event. payload must be the raw request body; any
// re-encoding invalidates the signature.
func VerifyStripeWebhook(payload []byte, signatureHeader, webhookSecret string) (stripe.Event, error) {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" {
		return stripe.Event{}, fmt.Errorf("%w: missing signature header", ErrSignatureInvalid)
	}
	if secret == "" {
		return stripe.Event{}, fmt.Errorf("%w: webhook secret not configured", ErrSignatureInvalid)
	}

	// Endpoint API versions are pinned in the Stripe dashboard and may lag
	// the SDK; the payload objects we read are stable across versions.
	event, err := webhook.ConstructEventWithOptions(payload, sig, secret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return event, nil
}
