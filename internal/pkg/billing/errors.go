package billing

import "errors"

var (
	// ErrSignatureInvalid means the webhook payload could not be authenticated.
	// Nothing downstream of the verifier may run for such a payload.
	ErrSignatureInvalid = errors.New("billing: invalid webhook signature")

	// ErrCorrelationMiss means the event could not be mapped to a profile.
	// Retrying will not help, so callers log it and acknowledge the event.
	ErrCorrelationMiss = errors.New("billing: event not correlated to a profile")

	// ErrPersistence wraps storage failures. The webhook answers 500 so the
	// provider redelivers.
	ErrPersistence = errors.New("billing: persistence failure")

	// ErrNoCustomer is returned when a billing portal is requested for a
	// profile that never completed a checkout.
	ErrNoCustomer = errors.New("billing: profile has no payment customer")
)
