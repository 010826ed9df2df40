package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackpearlke/blackpearl-api/internal/apperr"
	"github.com/blackpearlke/blackpearl-api/internal/models"
	"github.com/blackpearlke/blackpearl-api/internal/payment/mpesa"
	"github.com/blackpearlke/blackpearl-api/internal/payment/stripepay"
)

type fakeOrders struct {
	mu     sync.Mutex
	orders map[int64]*models.Order
}

func newFakeOrders(orders ...*models.Order) *fakeOrders {
	f := &fakeOrders{orders: make(map[int64]*models.Order)}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeOrders) ByID(ctx context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id], nil
}

func (f *fakeOrders) ByPaymentReference(ctx context.Context, ref string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.PaymentReference == ref && ref != "" {
			return o, nil
		}
	}
	return nil, nil
}

func (f *fakeOrders) SetPaymentReference(ctx context.Context, orderID int64, method models.PaymentMethod, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return apperr.NotFound("Order not found")
	}
	o.PaymentMethod = method
	o.PaymentReference = ref
	return nil
}

func (f *fakeOrders) TransitionPayment(ctx context.Context, orderID int64, from, to models.PaymentStatus, paidAt *time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.PaymentStatus != from {
		return false, nil
	}
	o.PaymentStatus = to
	if paidAt != nil {
		o.PaidAt = paidAt
	}
	return true, nil
}

type fakeSTK struct {
	pushErr  error
	lastPush struct {
		phone  string
		amount float64
	}
}

func (f *fakeSTK) InitiateSTKPush(ctx context.Context, phone string, amount float64, accountRef, description string) (*mpesa.STKPushResponse, error) {
	if f.pushErr != nil {
		return nil, f.pushErr
	}
	f.lastPush.phone = phone
	f.lastPush.amount = amount
	return &mpesa.STKPushResponse{CheckoutRequestID: "ws_CO_123", ResponseCode: "0"}, nil
}

func (f *fakeSTK) QuerySTKStatus(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error) {
	return &mpesa.STKQueryResponse{CheckoutRequestID: checkoutRequestID, ResultCode: "0"}, nil
}

type fakeStripe struct {
	verifyErr error
	event     *stripepay.Event
}

func (f *fakeStripe) CreateIntent(amount float64, orderNumber string) (string, string, error) {
	return "pi_123", "pi_123_secret", nil
}

func (f *fakeStripe) VerifyWebhook(payload []byte, sigHeader string) (*stripepay.Event, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.event, nil
}

// recordingNotifier counts sends; notifications are dispatched on a
// goroutine, so assertions synchronize through the channel.
type recordingNotifier struct {
	mu    sync.Mutex
	sent  []string
	first chan struct{}
	once  sync.Once
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{first: make(chan struct{})}
}

func (n *recordingNotifier) Send(ctx context.Context, phone, message string) error {
	n.mu.Lock()
	n.sent = append(n.sent, message)
	n.mu.Unlock()
	n.once.Do(func() { close(n.first) })
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *recordingNotifier) waitFirst(t *testing.T) {
	t.Helper()
	select {
	case <-n.first:
	case <-time.After(time.Second):
		t.Fatal("notification never sent")
	}
}

func pendingOrder(id int64, ref string) *models.Order {
	return &models.Order{
		ID:                id,
		OrderNumber:       "BP-2026-000042",
		Phone:             "254712345678",
		TotalAmount:       1500,
		PaymentStatus:     models.PaymentPending,
		PaymentReference:  ref,
		SMSUpdatesEnabled: true,
	}
}

func successCallback(ref string) *mpesa.CallbackEnvelope {
	var env mpesa.CallbackEnvelope
	env.Body.STKCallback.CheckoutRequestID = ref
	env.Body.STKCallback.ResultCode = 0
	return &env
}

func failureCallback(ref string) *mpesa.CallbackEnvelope {
	var env mpesa.CallbackEnvelope
	env.Body.STKCallback.CheckoutRequestID = ref
	env.Body.STKCallback.ResultCode = 1032
	env.Body.STKCallback.ResultDesc = "Request cancelled by user"
	return &env
}

func TestInitiateSTKPush(t *testing.T) {
	orders := newFakeOrders(pendingOrder(1, ""))
	stk := &fakeSTK{}
	svc := NewService(orders, stk, &fakeStripe{}, newRecordingNotifier())

	resp, err := svc.InitiateSTKPush(context.Background(), 1, "254712345678")
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_123", resp.CheckoutRequestID)
	assert.Equal(t, 1500.0, stk.lastPush.amount)

	// Reference and method recorded; status untouched until the callback.
	order, _ := orders.ByID(context.Background(), 1)
	assert.Equal(t, "ws_CO_123", order.PaymentReference)
	assert.Equal(t, models.PaymentMethodMpesa, order.PaymentMethod)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
}

func TestInitiateSTKPush_OrderNotFound(t *testing.T) {
	svc := NewService(newFakeOrders(), &fakeSTK{}, &fakeStripe{}, newRecordingNotifier())
	_, err := svc.InitiateSTKPush(context.Background(), 404, "254712345678")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestInitiateSTKPush_ProviderDown(t *testing.T) {
	orders := newFakeOrders(pendingOrder(1, ""))
	svc := NewService(orders, &fakeSTK{pushErr: errors.New("connection refused")}, &fakeStripe{}, newRecordingNotifier())

	_, err := svc.InitiateSTKPush(context.Background(), 1, "254712345678")
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))

	order, _ := orders.ByID(context.Background(), 1)
	assert.Empty(t, order.PaymentReference)
}

func TestMpesaCallback_Success(t *testing.T) {
	orders := newFakeOrders(pendingOrder(1, "ws_CO_123"))
	notifier := newRecordingNotifier()
	svc := NewService(orders, &fakeSTK{}, &fakeStripe{}, notifier)

	ack := svc.HandleMpesaCallback(context.Background(), successCallback("ws_CO_123"))
	assert.Equal(t, 0, ack.ResultCode)

	order, _ := orders.ByID(context.Background(), 1)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)
	require.NotNil(t, order.PaidAt)

	notifier.waitFirst(t)
	assert.Equal(t, 1, notifier.count())
}

func TestMpesaCallback_Replay(t *testing.T) {
	orders := newFakeOrders(pendingOrder(1, "ws_CO_123"))
	notifier := newRecordingNotifier()
	svc := NewService(orders, &fakeSTK{}, &fakeStripe{}, notifier)

	ack := svc.HandleMpesaCallback(context.Background(), successCallback("ws_CO_123"))
	assert.Equal(t, 0, ack.ResultCode)
	notifier.waitFirst(t)

	order, _ := orders.ByID(context.Background(), 1)
	paidAt := *order.PaidAt

	// Replaying the same payload is a no-op: same final state, no second
	// notification.
	ack = svc.HandleMpesaCallback(context.Background(), successCallback("ws_CO_123"))
	assert.Equal(t, 0, ack.ResultCode)

	order, _ = orders.ByID(context.Background(), 1)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)
	assert.Equal(t, paidAt, *order.PaidAt)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, notifier.count())
}

func TestMpesaCallback_UnknownReference(t *testing.T) {
	order := pendingOrder(1, "ws_CO_123")
	orders := newFakeOrders(order)
	notifier := newRecordingNotifier()
	svc := NewService(orders, &fakeSTK{}, &fakeStripe{}, notifier)

	// Unknown CheckoutRequestID: acknowledged so the provider stops
	// retrying, nothing mutated.
	ack := svc.HandleMpesaCallback(context.Background(), successCallback("ws_CO_UNKNOWN"))
	assert.Equal(t, 0, ack.ResultCode)

	got, _ := orders.ByID(context.Background(), 1)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)
	assert.Nil(t, got.PaidAt)
	assert.Equal(t, 0, notifier.count())
}

func TestMpesaCallback_Failure(t *testing.T) {
	orders := newFakeOrders(pendingOrder(1, "ws_CO_123"))
	notifier := newRecordingNotifier()
	svc := NewService(orders, &fakeSTK{}, &fakeStripe{}, notifier)

	ack := svc.HandleMpesaCallback(context.Background(), failureCallback("ws_CO_123"))
	assert.Equal(t, 0, ack.ResultCode)

	order, _ := orders.ByID(context.Background(), 1)
	assert.Equal(t, models.PaymentFailed, order.PaymentStatus)
	assert.Nil(t, order.PaidAt)
	assert.Equal(t, 0, notifier.count())
}

func TestMpesaCallback_SMSOptOut(t *testing.T) {
	order := pendingOrder(1, "ws_CO_123")
	order.SMSUpdatesEnabled = false
	orders := newFakeOrders(order)
	notifier := newRecordingNotifier()
	svc := NewService(orders, &fakeSTK{}, &fakeStripe{}, notifier)

	svc.HandleMpesaCallback(context.Background(), successCallback("ws_CO_123"))

	got, _ := orders.ByID(context.Background(), 1)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, notifier.count())
}

func TestCreateStripeIntent(t *testing.T) {
	order := pendingOrder(1, "")
	order.UserID = 7
	orders := newFakeOrders(order)
	svc := NewService(orders, &fakeSTK{}, &fakeStripe{}, newRecordingNotifier())

	secret, err := svc.CreateStripeIntent(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, "pi_123_secret", secret)

	got, _ := orders.ByID(context.Background(), 1)
	assert.Equal(t, "pi_123", got.PaymentReference)
	assert.Equal(t, models.PaymentMethodStripe, got.PaymentMethod)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)
}

func TestCreateStripeIntent_WrongUser(t *testing.T) {
	order := pendingOrder(1, "")
	order.UserID = 7
	svc := NewService(newFakeOrders(order), &fakeSTK{}, &fakeStripe{}, newRecordingNotifier())

	_, err := svc.CreateStripeIntent(context.Background(), 1, 8)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestStripeWebhook_InvalidSignature(t *testing.T) {
	orders := newFakeOrders(pendingOrder(1, "pi_123"))
	gateway := &fakeStripe{verifyErr: errors.New("signature mismatch")}
	svc := NewService(orders, &fakeSTK{}, gateway, newRecordingNotifier())

	err := svc.HandleStripeWebhook(context.Background(), []byte(`{}`), "t=1,v1=bad")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	// Rejected before any lookup: no side effects.
	order, _ := orders.ByID(context.Background(), 1)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
}

func TestStripeWebhook_Succeeded(t *testing.T) {
	orders := newFakeOrders(pendingOrder(1, "pi_123"))
	gateway := &fakeStripe{event: &stripepay.Event{Type: "payment_intent.succeeded", IntentID: "pi_123"}}
	notifier := newRecordingNotifier()
	svc := NewService(orders, &fakeSTK{}, gateway, notifier)

	err := svc.HandleStripeWebhook(context.Background(), []byte(`{}`), "t=1,v1=good")
	require.NoError(t, err)

	order, _ := orders.ByID(context.Background(), 1)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)
	notifier.waitFirst(t)
}

func TestStripeWebhook_Failed(t *testing.T) {
	orders := newFakeOrders(pendingOrder(1, "pi_123"))
	gateway := &fakeStripe{event: &stripepay.Event{Type: "payment_intent.payment_failed", IntentID: "pi_123"}}
	svc := NewService(orders, &fakeSTK{}, gateway, newRecordingNotifier())

	require.NoError(t, svc.HandleStripeWebhook(context.Background(), []byte(`{}`), "t=1,v1=good"))

	order, _ := orders.ByID(context.Background(), 1)
	assert.Equal(t, models.PaymentFailed, order.PaymentStatus)
}

func TestStripeWebhook_IgnoredEventType(t *testing.T) {
	orders := newFakeOrders(pendingOrder(1, "pi_123"))
	gateway := &fakeStripe{event: &stripepay.Event{Type: "charge.updated", IntentID: "pi_123"}}
	svc := NewService(orders, &fakeSTK{}, gateway, newRecordingNotifier())

	require.NoError(t, svc.HandleStripeWebhook(context.Background(), []byte(`{}`), "t=1,v1=good"))

	order, _ := orders.ByID(context.Background(), 1)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
}

func TestMarkRefunded(t *testing.T) {
	order := pendingOrder(1, "ws_CO_123")
	order.PaymentStatus = models.PaymentPaid
	orders := newFakeOrders(order)
	svc := NewService(orders, &fakeSTK{}, &fakeStripe{}, newRecordingNotifier())

	require.NoError(t, svc.MarkRefunded(context.Background(), 1))
	got, _ := orders.ByID(context.Background(), 1)
	assert.Equal(t, models.PaymentRefunded, got.PaymentStatus)
}

func TestMarkRefunded_RequiresPaid(t *testing.T) {
	orders := newFakeOrders(pendingOrder(1, "ws_CO_123"))
	svc := NewService(orders, &fakeSTK{}, &fakeStripe{}, newRecordingNotifier())

	err := svc.MarkRefunded(context.Background(), 1)
	assert.True(t, apperr.IsKind(err, apperr.KindBusiness))
}
