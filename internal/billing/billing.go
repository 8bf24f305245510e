// Package billing sells the premium subscription through Stripe checkout and
// keeps account tiers in sync with subscription webhooks.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	"github.com/philipparndt/modelforge/internal/account"
	"github.com/philipparndt/modelforge/internal/config"
)

var (
	ErrDisabled   = errors.New("billing is not configured")
	ErrNoCustomer = errors.New("no subscription found for this account")
	ErrForeign    = errors.New("checkout session belongs to another user")
)

// Accounts is the part of the account store billing updates
type Accounts interface {
	Get(ctx context.Context, userID string) (*account.Profile, error)
	Ensure(ctx context.Context, userID, email string) (*account.Profile, error)
	SetTier(ctx context.Context, userID string, tier account.Tier) error
	SetTierByEmail(ctx context.Context, email string, tier account.Tier) (int64, error)
	SetCustomer(ctx context.Context, userID, customerID string) error
}

// Checkout is a created checkout session
type Checkout struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// Verification is the state of a finished checkout
type Verification struct {
	SessionID string       `json:"sessionId"`
	UserID    string       `json:"userId,omitempty"`
	Paid      bool         `json:"paid"`
	Tier      account.Tier `json:"tier"`
}

// Service talks to Stripe
type Service struct {
	api      *client.API
	cfg      config.BillingConfig
	accounts Accounts
	logger   *zap.Logger
}

// NewService creates the billing service. backends may be nil for the public API.
func NewService(cfg config.BillingConfig, accounts Accounts, backends *stripe.Backends, logger *zap.Logger) (*Service, error) {
	if cfg.SecretKey == "" {
		return nil, ErrDisabled
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		api:      client.New(cfg.SecretKey, backends),
		cfg:      cfg,
		accounts: accounts,
		logger:   logger.With(zap.String("component", "billing")),
	}, nil
}

// CreateCheckout starts a subscription checkout for the user
func (s *Service) CreateCheckout(ctx context.Context, userID, email string) (*Checkout, error) {
	if s.cfg.PriceID == "" {
		return nil, fmt.Errorf("%w: billing.price_id is empty", ErrDisabled)
	}
	if _, err := s.accounts.Ensure(ctx, userID, email); err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(s.cfg.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
	}
	if email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	params.Context = ctx
	params.AddMetadata("userId", userID)

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	s.logger.Info("checkout session created", zap.String("user", userID), zap.String("session", sess.ID))
	return &Checkout{SessionID: sess.ID, URL: sess.URL}, nil
}

// CreatePortal opens the subscription management portal of the user
func (s *Service) CreatePortal(ctx context.Context, userID, returnURL string) (string, error) {
	p, err := s.accounts.Get(ctx, userID)
	if err != nil || p.StripeCustomerID == "" {
		return "", ErrNoCustomer
	}
	if returnURL == "" {
		returnURL = s.cfg.PortalReturnURL
	}
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(p.StripeCustomerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	sess, err := s.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}
	return sess.URL, nil
}

// VerifyCheckout checks a session started by userID and upgrades the user when
// it is paid. Sessions of other users fail with ErrForeign.
func (s *Service) VerifyCheckout(ctx context.Context, userID, sessionID string) (*Verification, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := s.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkout session: %w", err)
	}

	if owner := sess.Metadata["userId"]; owner != userID {
		return nil, fmt.Errorf("%w: %s", ErrForeign, sess.ID)
	}

	v := &Verification{SessionID: sess.ID, UserID: userID, Tier: account.TierFree}
	v.Paid = sess.Status == stripe.CheckoutSessionStatusComplete &&
		sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusUnpaid
	if !v.Paid {
		return v, nil
	}
	if err := s.upgrade(ctx, sess); err != nil {
		return nil, err
	}
	v.Tier = account.TierPremium
	return v, nil
}

func (s *Service) upgrade(ctx context.Context, sess *stripe.CheckoutSession) error {
	userID := sess.Metadata["userId"]
	if err := s.accounts.SetTier(ctx, userID, account.TierPremium); err != nil {
		return err
	}
	if sess.Customer != nil && sess.Customer.ID != "" {
		if err := s.accounts.SetCustomer(ctx, userID, sess.Customer.ID); err != nil {
			return err
		}
	}
	s.logger.Info("user upgraded to premium", zap.String("user", userID))
	return nil
}

// HandleWebhook verifies and applies a Stripe event; it returns the event type
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (string, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return "", fmt.Errorf("invalid webhook: %w", err)
	}
	s.logger.Info("webhook received", zap.String("type", string(event.Type)))

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return "", fmt.Errorf("invalid checkout session: %w", err)
		}
		if sess.Metadata["userId"] != "" {
			if err := s.upgrade(ctx, &sess); err != nil {
				return "", err
			}
		}

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return "", fmt.Errorf("invalid subscription: %w", err)
		}
		if sub.Status != stripe.SubscriptionStatusCanceled && sub.Status != stripe.SubscriptionStatusUnpaid {
			break
		}
		if err := s.downgrade(ctx, sub.Customer); err != nil {
			return "", err
		}
	}
	return string(event.Type), nil
}

func (s *Service) downgrade(ctx context.Context, customer *stripe.Customer) error {
	if customer == nil || customer.ID == "" {
		return nil
	}
	params := &stripe.CustomerParams{}
	params.Context = ctx
	c, err := s.api.Customers.Get(customer.ID, params)
	if err != nil {
		return fmt.Errorf("failed to load customer %s: %w", customer.ID, err)
	}
	if c.Email == "" {
		return nil
	}
	n, err := s.accounts.SetTierByEmail(ctx, c.Email, account.TierFree)
	if err != nil {
		return err
	}
	s.logger.Info("user downgraded to free", zap.String("email", c.Email), zap.Int64("accounts", n))
	return nil
}
