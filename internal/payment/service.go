// Package payment maps asynchronous provider outcomes onto order payment
// state. Callbacks may arrive arbitrarily late and may be replayed; every
// transition goes through the payment state machine with a conditional
// store update, so replays are no-ops rather than errors.
package payment

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/blackpearlke/blackpearl-api/internal/apperr"
	"github.com/blackpearlke/blackpearl-api/internal/models"
	"github.com/blackpearlke/blackpearl-api/internal/notify"
	"github.com/blackpearlke/blackpearl-api/internal/payment/mpesa"
	"github.com/blackpearlke/blackpearl-api/internal/payment/stripepay"
)

// OrderStore is the slice of order persistence reconciliation needs.
// TransitionPayment must be a compare-and-swap on the current status.
type OrderStore interface {
	ByID(ctx context.Context, id int64) (*models.Order, error)
	ByPaymentReference(ctx context.Context, ref string) (*models.Order, error)
	SetPaymentReference(ctx context.Context, orderID int64, method models.PaymentMethod, ref string) error
	TransitionPayment(ctx context.Context, orderID int64, from, to models.PaymentStatus, paidAt *time.Time) (bool, error)
}

// STKClient initiates and queries customer push payments.
type STKClient interface {
	InitiateSTKPush(ctx context.Context, phone string, amount float64, accountRef, description string) (*mpesa.STKPushResponse, error)
	QuerySTKStatus(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error)
}

// StripeGateway creates payment intents and verifies webhook signatures.
type StripeGateway interface {
	CreateIntent(amount float64, orderNumber string) (id, clientSecret string, err error)
	VerifyWebhook(payload []byte, sigHeader string) (*stripepay.Event, error)
}

type Service struct {
	orders   OrderStore
	stk      STKClient
	stripe   StripeGateway
	notifier notify.Notifier
	now      func() time.Time
}

func NewService(orders OrderStore, stk STKClient, stripe StripeGateway, notifier notify.Notifier) *Service {
	return &Service{
		orders:   orders,
		stk:      stk,
		stripe:   stripe,
		notifier: notifier,
		now:      time.Now,
	}
}

// InitiateSTKPush starts a customer push payment for the order and stores
// the provider transaction reference. Payment status stays PENDING; only
// the callback moves it.
func (s *Service) InitiateSTKPush(ctx context.Context, orderID int64, phone string) (*mpesa.STKPushResponse, error) {
	order, err := s.orders.ByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("Order not found")
	}

	resp, err := s.stk.InitiateSTKPush(ctx, phone, order.TotalAmount, order.OrderNumber, "The Black Pearl Order Payment")
	if err != nil {
		return nil, apperr.Upstream("Failed to initiate MPESA payment", err)
	}

	if err := s.orders.SetPaymentReference(ctx, order.ID, models.PaymentMethodMpesa, resp.CheckoutRequestID); err != nil {
		return nil, err
	}
	return resp, nil
}

// QuerySTKStatus proxies a push status query to the provider.
func (s *Service) QuerySTKStatus(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error) {
	resp, err := s.stk.QuerySTKStatus(ctx, checkoutRequestID)
	if err != nil {
		return nil, apperr.Upstream("Failed to query STK status", err)
	}
	return resp, nil
}

// HandleMpesaCallback applies an STK push result. It always returns a
// success acknowledgment; returning anything else would make the provider
// retry indefinitely. Anomalies are logged, not surfaced.
func (s *Service) HandleMpesaCallback(ctx context.Context, env *mpesa.CallbackEnvelope) mpesa.Ack {
	if err := s.applyResult(ctx, env.Reference(), env.Succeeded()); err != nil {
		log.Printf("mpesa callback for %s not applied: %v", env.Reference(), err)
	}
	return mpesa.AckOK()
}

// CreateStripeIntent creates a PaymentIntent for the order's total and
// stores the intent id as the payment reference.
func (s *Service) CreateStripeIntent(ctx context.Context, orderID, userID int64) (clientSecret string, err error) {
	order, err := s.orders.ByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", apperr.NotFound("Order not found")
	}
	if order.UserID != userID {
		return "", apperr.Forbidden("Access denied")
	}
	if order.TotalAmount <= 0 {
		return "", apperr.Business("Invalid order amount")
	}

	intentID, secret, err := s.stripe.CreateIntent(order.TotalAmount, order.OrderNumber)
	if err != nil {
		return "", apperr.Upstream("Stripe payment failed", err)
	}

	if err := s.orders.SetPaymentReference(ctx, order.ID, models.PaymentMethodStripe, intentID); err != nil {
		return "", err
	}
	return secret, nil
}

// HandleStripeWebhook verifies the payload signature before any lookup;
// a bad signature is rejected with no side effects. Verified events are
// applied through the same transition path as M-Pesa callbacks.
func (s *Service) HandleStripeWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.stripe.VerifyWebhook(payload, sigHeader)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "Webhook signature verification failed", err)
	}

	switch event.Type {
	case "payment_intent.succeeded":
		if err := s.applyResult(ctx, event.IntentID, true); err != nil {
			log.Printf("stripe webhook for %s not applied: %v", event.IntentID, err)
		}
	case "payment_intent.payment_failed":
		if err := s.applyResult(ctx, event.IntentID, false); err != nil {
			log.Printf("stripe webhook for %s not applied: %v", event.IntentID, err)
		}
	default:
		// Unhandled event types are acknowledged and dropped.
	}
	return nil
}

// MarkRefunded is the admin-only PAID→REFUNDED transition.
func (s *Service) MarkRefunded(ctx context.Context, orderID int64) error {
	order, err := s.orders.ByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return apperr.NotFound("Order not found")
	}
	if !models.CanTransitionPayment(order.PaymentStatus, models.PaymentRefunded) {
		return apperr.Business(fmt.Sprintf("Cannot refund order in %s state", order.PaymentStatus))
	}
	applied, err := s.orders.TransitionPayment(ctx, order.ID, order.PaymentStatus, models.PaymentRefunded, nil)
	if err != nil {
		return err
	}
	if !applied {
		return apperr.Conflict("Order changed state, try again")
	}
	return nil
}

// applyResult resolves the order by provider reference and applies the
// success or failure transition. An unknown reference is a logged no-op:
// the provider must still receive a success acknowledgment so it stops
// retrying. Transitions out of terminal states are silently skipped,
// which makes replayed callbacks idempotent.
func (s *Service) applyResult(ctx context.Context, ref string, success bool) error {
	order, err := s.orders.ByPaymentReference(ctx, ref)
	if err != nil {
		return err
	}
	if order == nil {
		log.Printf("payment callback with unknown reference %q ignored", ref)
		return nil
	}

	target := models.PaymentFailed
	if success {
		target = models.PaymentPaid
	}
	if !models.CanTransitionPayment(order.PaymentStatus, target) {
		// Terminal state, replayed callback. No-op.
		return nil
	}

	var paidAt *time.Time
	if success {
		now := s.now()
		paidAt = &now
	}
	applied, err := s.orders.TransitionPayment(ctx, order.ID, order.PaymentStatus, target, paidAt)
	if err != nil {
		return err
	}
	if applied && success && order.SMSUpdatesEnabled && order.Phone != "" {
		s.notifyPaid(order)
	}
	return nil
}

// notifyPaid sends the payment confirmation SMS fire-and-forget: a
// notification failure must never fail the callback response.
func (s *Service) notifyPaid(order *models.Order) {
	phone, msg := order.Phone, fmt.Sprintf(
		"Payment received for order %s. Thank you for shopping with The Black Pearl.", order.OrderNumber)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.notifier.Send(ctx, phone, msg); err != nil {
			log.Printf("failed to send payment SMS for %s: %v", order.OrderNumber, err)
		}
	}()
}
