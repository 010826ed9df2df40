// Package stripepay wraps the Stripe SDK behind the two operations the
// payment service needs: creating a PaymentIntent for an order and
// verifying webhook payload signatures.
package stripepay

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/blackpearlke/blackpearl-api/internal/config"
)

type Gateway struct {
	api           *client.API
	webhookSecret string
	currency      string
}

func NewGateway(cfg config.StripeConfig) *Gateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &Gateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		currency:      cfg.Currency,
	}
}

// toCents converts a major-unit amount to integer cents. Rounded, not
// truncated: float representation error puts amounts like 1234.29 just
// below the integer and truncation would shave a cent off the charge.
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateIntent creates a PaymentIntent for the given amount (major
// currency units) and returns its id and client secret.
func (g *Gateway) CreateIntent(amount float64, orderNumber string) (id, clientSecret string, err error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toCents(amount)),
		Currency: stripe.String(g.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("order_number", orderNumber)

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return "", "", fmt.Errorf("failed to create payment intent: %w", err)
	}
	return intent.ID, intent.ClientSecret, nil
}

// Event is the subset of a verified webhook event reconciliation acts on.
type Event struct {
	Type           string
	IntentID       string
	AmountReceived int64
}

// VerifyWebhook checks the payload signature and extracts the payment
// intent reference. Invalid signatures fail before anything else happens.
func (g *Gateway) VerifyWebhook(payload []byte, sigHeader string) (*Event, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook verification failed: %w", err)
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("failed to parse event object: %w", err)
	}

	return &Event{
		Type:           string(event.Type),
		IntentID:       intent.ID,
		AmountReceived: intent.AmountReceived,
	}, nil
}
