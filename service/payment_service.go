package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/Snoglet99/JobAgent/metrics"
)

// CreditPack identifies a purchasable credit bundle
type CreditPack string

const (
	// PackSingle unlocks one generation for $3 AUD
	PackSingle CreditPack = "single"
	// PackBulk grants ten credits for $5 AUD
	PackBulk CreditPack = "bulk"
)

// packPricing fixes the AUD price (in cents), product label and credit grant
// per pack.
var packPricing = map[CreditPack]struct {
	amount  int64
	name    string
	credits int
}{
	PackSingle: {amount: 300, name: "Single Application Credit", credits: 1},
	PackBulk:   {amount: 500, name: "10 Job Application Credits", credits: 10},
}

// PaymentService creates hosted checkout sessions and interprets payment
// confirmations.
type PaymentService struct {
	secretKey     string
	webhookSecret string
	frontendURL   string
}

// PaymentServiceOption is a functional option for PaymentService
type PaymentServiceOption func(*PaymentService)

// PaymentWithSecretKey sets the Stripe secret key
func PaymentWithSecretKey(key string) PaymentServiceOption {
	return func(s *PaymentService) {
		s.secretKey = key
	}
}

// PaymentWithWebhookSecret sets the webhook signing secret
func PaymentWithWebhookSecret(secret string) PaymentServiceOption {
	return func(s *PaymentService) {
		s.webhookSecret = secret
	}
}

// PaymentWithFrontendURL sets the base URL used for redirect targets
func PaymentWithFrontendURL(u string) PaymentServiceOption {
	return func(s *PaymentService) {
		s.frontendURL = strings.TrimRight(u, "/")
	}
}

// NewPaymentService creates a new payment service and wires the Stripe API
// key.
func NewPaymentService(opts ...PaymentServiceOption) *PaymentService {
	s := &PaymentService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.secretKey != "" {
		stripe.Key = s.secretKey
	}
	return s
}

var (
	ErrBillingNotConfigured = errors.New("billing not configured")
	ErrUnknownPack          = errors.New("unknown credit pack")
)

// CreditsForPack returns the credit grant for a pack
func CreditsForPack(pack CreditPack) (int, error) {
	pricing, ok := packPricing[pack]
	if !ok {
		return 0, ErrUnknownPack
	}
	return pricing.credits, nil
}

// CreateCheckoutSession starts a hosted checkout for the given email and
// pack and returns the redirect URL. The success URL carries the email and a
// paid=1 flag the Application Generator page inspects on return.
func (s *PaymentService) CreateCheckoutSession(ctx context.Context, email string, pack CreditPack) (string, error) {
	if s.secretKey == "" || s.frontendURL == "" {
		return "", ErrBillingNotConfigured
	}

	pricing, ok := packPricing[pack]
	if !ok {
		return "", ErrUnknownPack
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail:      stripe.String(email),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyAUD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(pricing.name),
					},
					UnitAmount: stripe.Int64(pricing.amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(fmt.Sprintf("%s/Application_Generator?email=%s&paid=1", s.frontendURL, email)),
		CancelURL:  stripe.String(s.frontendURL + "/Application_Generator"),
		Metadata: map[string]string{
			"email":   email,
			"pack":    string(pack),
			"credits": strconv.Itoa(pricing.credits),
		},
	}

	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	metrics.CheckoutSessionsTotal.Inc()
	log.Info().Str("email", email).Str("pack", string(pack)).Msg("checkout session created")

	return sess.URL, nil
}

// PaymentConfirmation is the grant extracted from a verified webhook event
type PaymentConfirmation struct {
	Email   string
	Credits int
}

// VerifyWebhook checks the Stripe signature on a webhook payload and, for
// completed checkouts, returns the grant to apply. A nil confirmation with a
// nil error means the event type is ignored.
func (s *PaymentService) VerifyWebhook(payload []byte, signature string) (*PaymentConfirmation, error) {
	if s.webhookSecret == "" {
		return nil, ErrBillingNotConfigured
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		s.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("signature verification failed: %w", err)
	}

	if event.Type != "checkout.session.completed" {
		// Intentionally ignore unhandled events.
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	email := sess.Metadata["email"]
	if email == "" && sess.CustomerEmail != "" {
		email = sess.CustomerEmail
	}
	if email == "" {
		return nil, errors.New("checkout session missing email")
	}

	credits, err := strconv.Atoi(sess.Metadata["credits"])
	if err != nil || credits <= 0 {
		// Sessions created before metadata carried the grant default to the
		// bulk pack.
		credits = packPricing[PackBulk].credits
	}

	return &PaymentConfirmation{Email: email, Credits: credits}, nil
}
