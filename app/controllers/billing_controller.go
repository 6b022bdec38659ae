package controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/fastlog-app/fastlog-backend/app/models"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/billing"
	"github.com/fastlog-app/fastlog-backend/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// StatsInvalidator drops cached aggregates after billing state changed.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

// OutcomeRecorder counts webhook outcomes for operators.
type OutcomeRecorder interface {
	AddWebhookOutcome(ctx context.Context, eventType, outcome string) error
}

// BillingController serves the Stripe webhook and the hosted billing pages.
type BillingController struct {
	svc            *billing.Service
	gateway        billing.Gateway
	webhookSecret  string
	defaultPriceID string
	stats          StatsInvalidator
	outcomes       OutcomeRecorder
}

// NewBillingController creates a billing controller.
func NewBillingController(svc *billing.Service, gateway billing.Gateway, webhookSecret, defaultPriceID string) *BillingController {
	return &BillingController{
		svc:            svc,
		gateway:        gateway,
		webhookSecret:  webhookSecret,
		defaultPriceID: strings.TrimSpace(defaultPriceID),
	}
}

// WithStatsInvalidator registers the cache to drop after applied events.
func (bc *BillingController) WithStatsInvalidator(s StatsInvalidator) *BillingController {
	bc.stats = s
	return bc
}

// WithOutcomeRecorder registers the webhook outcome counters.
func (bc *BillingController) WithOutcomeRecorder(r OutcomeRecorder) *BillingController {
	bc.outcomes = r
	return bc
}

// HandleStripeWebhook verifies, records and reconciles one Stripe delivery.
// Nothing is persisted for payloads failing verification. Correlation misses
// and unrecognized events are acknowledged; persistence failures answer 500
// so Stripe retries.
func (bc *BillingController) HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := firstHeaderValue(c, billing.SignatureHeaders...)

	event, err := billing.VerifyStripeWebhook(rawBody, signature, bc.webhookSecret)
	if err != nil {
		log.Warnw("billing: rejected stripe webhook", "ip", c.IP(), "error", err.Error())
		return jsonError(c, fiber.StatusBadRequest, "invalid_signature", "Webhook signature verification failed")
	}

	ctx, cancel := requestContext()
	defer cancel()

	created, stored, err := bc.svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(rawBody),
	})
	if err != nil {
		log.Errorw("billing: webhook event not recorded", "event_id", event.ID, "error", err.Error())
		return jsonError(c, fiber.StatusInternalServerError, "webhook_persist_failed", "Webhook could not be recorded")
	}
	if !created {
		log.Warnw("billing: replayed stripe event",
			"event_id", event.ID,
			"type", event.Type,
			"deliveries", stored.Deliveries,
		)
	}

	outcome, err := bc.svc.HandleEvent(ctx, event)
	if markErr := bc.svc.MarkWebhookProcessed(ctx, stored.ID, outcome, err); markErr != nil {
		log.Warnw("billing: webhook outcome not stored", "event_id", event.ID, "error", markErr.Error())
	}
	bc.recordOutcome(ctx, string(event.Type), outcome, err)
	if err != nil {
		log.Errorw("billing: stripe event reconciliation failed",
			"event_id", event.ID,
			"type", event.Type,
			"error", err.Error(),
		)
		return jsonError(c, fiber.StatusInternalServerError, "reconcile_failed", "Webhook could not be processed")
	}

	if outcome == billing.OutcomeApplied && bc.stats != nil {
		bc.stats.Invalidate(ctx)
	}
	return c.Status(fiber.StatusOK).SendString("OK")
}

func (bc *BillingController) recordOutcome(ctx context.Context, eventType string, outcome billing.Outcome, err error) {
	if bc.outcomes == nil {
		return
	}
	label := string(outcome)
	if err != nil {
		label = "failed"
	}
	if recErr := bc.outcomes.AddWebhookOutcome(ctx, eventType, label); recErr != nil {
		log.Debugw("billing: outcome counter not updated", "error", recErr.Error())
	}
}

type checkoutRequest struct {
	PriceID    string `json:"price_id" validate:"omitempty,max=255"`
	SuccessURL string `json:"success_url" validate:"required,url"`
	CancelURL  string `json:"cancel_url" validate:"required,url"`
}

type portalRequest struct {
	ReturnURL string `json:"return_url" validate:"required,url"`
}

// HandleCreateCheckout opens a Stripe Checkout page for the signed-in user.
func (bc *BillingController) HandleCreateCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	var req checkoutRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	priceID := strings.TrimSpace(req.PriceID)
	if priceID == "" {
		priceID = bc.defaultPriceID
	}
	if priceID == "" {
		return jsonError(c, fiber.StatusServiceUnavailable, "billing_not_configured", "No price configured")
	}

	ctx, cancel := requestContext()
	defer cancel()

	profile, ok, err := bc.loadProfile(ctx, c, userCtx.UserID)
	if !ok {
		return err
	}

	email := profile.Email
	if email == "" {
		email = userCtx.Email
	}
	session, err := bc.gateway.CreateCheckoutSession(ctx, billing.CheckoutSessionInput{
		UserID:     profile.ID,
		Email:      email,
		CustomerID: profile.CustomerID(),
		PriceID:    priceID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		log.Errorw("billing: checkout session failed", "user_id", profile.ID, "error", err.Error())
		return jsonError(c, fiber.StatusBadGateway, "checkout_failed", "Checkout session could not be created")
	}
	return c.JSON(session)
}

// HandleCreatePortal opens the Stripe billing portal for a linked customer.
func (bc *BillingController) HandleCreatePortal(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	var req portalRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := requestContext()
	defer cancel()

	profile, ok, err := bc.loadProfile(ctx, c, userCtx.UserID)
	if !ok {
		return err
	}
	if profile.CustomerID() == "" {
		return jsonError(c, fiber.StatusConflict, "no_customer", "No subscription to manage yet")
	}

	session, err := bc.gateway.CreatePortalSession(ctx, profile.CustomerID(), req.ReturnURL)
	if err != nil {
		if errors.Is(err, billing.ErrNoCustomer) {
			return jsonError(c, fiber.StatusConflict, "no_customer", "No subscription to manage yet")
		}
		log.Errorw("billing: portal session failed", "user_id", profile.ID, "error", err.Error())
		return jsonError(c, fiber.StatusBadGateway, "portal_failed", "Portal session could not be created")
	}
	return c.JSON(fiber.Map{"url": session.URL})
}

func (bc *BillingController) loadProfile(ctx context.Context, c *fiber.Ctx, userID string) (*models.Profile, bool, error) {
	profile, err := bc.svc.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, jsonError(c, fiber.StatusNotFound, "profile_not_found", "Profile not found")
		}
		log.Errorw("billing: profile lookup failed", "user_id", userID, "error", err.Error())
		return nil, false, jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Profile lookup failed")
	}
	return profile, true, nil
}
