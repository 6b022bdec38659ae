package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
)

// Gateway creates provider-hosted pages for the signed-in user.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*HostedSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*HostedSession, error)
}

type stripeGateway struct {
	checkout *checkoutsession.Client
	portal   *portalsession.Client
}

// NewStripeGateway builds a Gateway talking to the Stripe API with secretKey.
func NewStripeGateway(secretKey string) Gateway {
	backend := stripe.GetBackend(stripe.APIBackend)
	return &stripeGateway{
		checkout: &checkoutsession.Client{B: backend, Key: secretKey},
		portal:   &portalsession.Client{B: backend, Key: secretKey},
	}
}

// CreateCheckoutSession opens a subscription checkout. The user id is attached
// as client_reference_id and as metadata on both the session and the
// subscription so completion events can be correlated back to the profile.
func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*HostedSession, error) {
	userID := strings.TrimSpace(in.UserID)
	priceID := strings.TrimSpace(in.PriceID)
	if userID == "" || priceID == "" {
		return nil, errors.New("user_id and price_id are required")
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
		ClientReferenceID: stripe.String(userID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetadataUserIDKey: userID},
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserIDKey, userID)
	if cid := strings.TrimSpace(in.CustomerID); cid != "" {
		params.Customer = stripe.String(cid)
	} else if email := strings.TrimSpace(in.Email); email != "" {
		params.CustomerEmail = stripe.String(email)
	}

	s, err := g.checkout.New(params)
	if err != nil {
		return nil, err
	}
	return &HostedSession{ID: s.ID, URL: s.URL}, nil
}

func (g *stripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*HostedSession, error) {
	cid := strings.TrimSpace(customerID)
	if cid == "" {
		return nil, ErrNoCustomer
	}
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(cid),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := g.portal.New(params)
	if err != nil {
		return nil, err
	}
	return &HostedSession{ID: s.ID, URL: s.URL}, nil
}
