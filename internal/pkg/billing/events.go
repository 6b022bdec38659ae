package billing

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"
)

// KindOf maps a Stripe event type onto a reconciliation action. The kind
// names themselves are accepted as aliases.
func KindOf(eventType stripe.EventType) EventKind {
	switch EventKind(eventType) {
	case EventKindCheckoutCompleted:
		return EventKindCheckoutCompleted
	case EventKindSubscriptionUpdated:
		return EventKindSubscriptionUpdated
	case EventKindSubscriptionDeleted:
		return EventKindSubscriptionDeleted
	}

	switch eventType {
	case stripe.EventTypeCheckoutSessionCompleted:
		return EventKindCheckoutCompleted
	case stripe.EventTypeCustomerSubscriptionUpdated:
		return EventKindSubscriptionUpdated
	case stripe.EventTypeCustomerSubscriptionDeleted:
		return EventKindSubscriptionDeleted
	default:
		return EventKindUnrecognized
	}
}

// HandleEvent dispatches a verified event to its reconciliation action.
// Unrecognized types, undecodable objects and correlation misses are
// acknowledged without error; only persistence failures are returned.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) (Outcome, error) {
	kind := KindOf(event.Type)
	if kind == EventKindUnrecognized {
		log.Debugw("billing: ignoring stripe event", "event_id", event.ID, "type", event.Type)
		return OutcomeIgnored, nil
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		log.Warnw("billing: stripe event without data object", "event_id", event.ID, "type", event.Type)
		return OutcomeMalformed, nil
	}

	var err error
	switch kind {
	case EventKindCheckoutCompleted:
		var in CheckoutCompletion
		if in, err = DecodeCheckoutCompletion(event.Data.Raw); err != nil {
			return malformed(event, err)
		}
		err = s.GrantOnCheckout(ctx, in)
	case EventKindSubscriptionUpdated:
		var in SubscriptionChange
		if in, err = DecodeSubscriptionChange(event.Data.Raw); err != nil {
			return malformed(event, err)
		}
		err = s.ApplySubscriptionStatus(ctx, in)
	case EventKindSubscriptionDeleted:
		var in SubscriptionChange
		if in, err = DecodeSubscriptionChange(event.Data.Raw); err != nil {
			return malformed(event, err)
		}
		err = s.RevokeSubscription(ctx, in)
	}

	switch {
	case err == nil:
		return OutcomeApplied, nil
	case errors.Is(err, ErrCorrelationMiss):
		log.Warnw("billing: stripe event not correlated",
			"event_id", event.ID,
			"type", event.Type,
			"kind", kind,
			"error", err.Error(),
		)
		return OutcomeCorrelationMiss, nil
	default:
		return "", err
	}
}

func malformed(event stripe.Event, err error) (Outcome, error) {
	log.Errorw("billing: undecodable stripe event object",
		"event_id", event.ID,
		"type", event.Type,
		"error", err.Error(),
	)
	return OutcomeMalformed, nil
}

// DecodeCheckoutCompletion extracts the correlation data from a checkout
// session object. The user id comes from metadata, falling back to the
// session's client_reference_id.
func DecodeCheckoutCompletion(raw json.RawMessage) (CheckoutCompletion, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return CheckoutCompletion{}, err
	}

	in := CheckoutCompletion{
		UserID:    strings.TrimSpace(session.Metadata[MetadataUserIDKey]),
		SessionID: session.ID,
	}
	if in.UserID == "" {
		in.UserID = strings.TrimSpace(session.ClientReferenceID)
	}
	if session.Customer != nil {
		in.CustomerID = strings.TrimSpace(session.Customer.ID)
	}
	if session.Subscription != nil {
		in.SubscriptionID = strings.TrimSpace(session.Subscription.ID)
	}
	return in, nil
}

// DecodeSubscriptionChange extracts customer and status from a subscription
// object.
func DecodeSubscriptionChange(raw json.RawMessage) (SubscriptionChange, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return SubscriptionChange{}, err
	}

	in := SubscriptionChange{
		SubscriptionID: sub.ID,
		Status:         string(sub.Status),
	}
	if sub.Customer != nil {
		in.CustomerID = strings.TrimSpace(sub.Customer.ID)
	}
	return in, nil
}
