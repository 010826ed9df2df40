package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackpearlke/blackpearl-api/internal/apperr"
	"github.com/blackpearlke/blackpearl-api/internal/config"
	"github.com/blackpearlke/blackpearl-api/internal/models"
)

// fakeStore is an in-memory checkout.Store. WithinTx serializes callers
// and restores a snapshot on error, mimicking the rollback the SQL
// implementation gets from its transaction.
type fakeStore struct {
	mu        sync.Mutex
	products  map[int64]*models.Product
	carts     map[int64]*models.Cart // keyed by user id
	orders    map[string]*models.Order
	conflicts int // simulated duplicate order numbers before inserts succeed
	nextID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: make(map[int64]*models.Product),
		carts:    make(map[int64]*models.Cart),
		orders:   make(map[string]*models.Order),
		nextID:   1,
	}
}

func (f *fakeStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	products := make(map[int64]*models.Product, len(f.products))
	for id, p := range f.products {
		cp := *p
		products[id] = &cp
	}
	carts := make(map[int64]*models.Cart, len(f.carts))
	for id, c := range f.carts {
		cp := *c
		cp.Items = append([]models.CartItem(nil), c.Items...)
		carts[id] = &cp
	}
	orders := make(map[string]*models.Order, len(f.orders))
	for num, o := range f.orders {
		orders[num] = o
	}

	if err := fn((*fakeTx)(f)); err != nil {
		f.products = products
		f.carts = carts
		f.orders = orders
		return err
	}
	return nil
}

type fakeTx fakeStore

func (t *fakeTx) CartByUser(ctx context.Context, userID int64) (*models.Cart, error) {
	return t.carts[userID], nil
}

func (t *fakeTx) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	return t.products[id], nil
}

func (t *fakeTx) CountOrdersForYear(ctx context.Context, year int) (int, error) {
	prefix := fmt.Sprintf("BP-%d-", year)
	n := 0
	for num := range t.orders {
		if strings.HasPrefix(num, prefix) {
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) InsertOrder(ctx context.Context, o *models.Order) error {
	if t.conflicts > 0 {
		t.conflicts--
		return apperr.Conflict("Order number already taken")
	}
	if _, exists := t.orders[o.OrderNumber]; exists {
		return apperr.Conflict("Order number already taken")
	}
	o.ID = t.nextID
	t.nextID++
	t.orders[o.OrderNumber] = o
	return nil
}

func (t *fakeTx) DecrementStock(ctx context.Context, productID int64, qty int) (bool, error) {
	p, ok := t.products[productID]
	if !ok || p.CountInStock < qty {
		return false, nil
	}
	p.CountInStock -= qty
	p.SoldCount += qty
	return true, nil
}

func (t *fakeTx) DeleteCart(ctx context.Context, cartID int64) error {
	for userID, cart := range t.carts {
		if cart.ID == cartID {
			delete(t.carts, userID)
		}
	}
	return nil
}

func (f *fakeStore) addProduct(id int64, name string, price float64, stock int) {
	f.products[id] = &models.Product{
		ID: id, Name: name, Price: price, CountInStock: stock,
		Images: []string{"https://cdn.example.com/" + name + ".jpg"},
	}
}

func (f *fakeStore) addCart(userID int64, items ...models.CartItem) {
	f.carts[userID] = &models.Cart{ID: userID * 100, UserID: userID, Items: items}
}

func newTestService(store Store) *Service {
	return NewService(store, config.CheckoutConfig{
		DeliveryFee:  300,
		DeliveryCity: "Nairobi",
		Currency:     "KES",
	})
}

var validInput = Input{
	PaymentMethod:     "COD",
	County:            "Nairobi",
	Town:              "Westlands",
	SMSUpdatesEnabled: true,
}

func TestCreateOrder_CartRoundTrip(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, "Merlot", 100, 10)
	store.addCart(7, models.CartItem{ProductID: 1, Name: "Merlot", Price: 100, Quantity: 2})

	svc := newTestService(store)
	order, err := svc.CreateOrder(context.Background(), 7, "254712345678", validInput)
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, 100.0, order.Items[0].Price)
	assert.Equal(t, 200.0, order.Subtotal)
	assert.Equal(t, 300.0, order.DeliveryFee)
	assert.Equal(t, order.Subtotal+order.DeliveryFee, order.TotalAmount)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.Equal(t, models.DeliveryPending, order.DeliveryStatus)
	assert.Equal(t, "Westlands, Nairobi", order.DeliveryAddress)

	// Stock decremented, cart gone.
	assert.Equal(t, 8, store.products[1].CountInStock)
	assert.Nil(t, store.carts[7])
}

func TestCreateOrder_OrderNumberFormat(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, "Merlot", 100, 10)
	store.addCart(7, models.CartItem{ProductID: 1, Quantity: 1})

	svc := newTestService(store)
	order, err := svc.CreateOrder(context.Background(), 7, "254712345678", validInput)
	require.NoError(t, err)

	expected := fmt.Sprintf("BP-%d-000001", time.Now().Year())
	assert.Equal(t, expected, order.OrderNumber)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, "Merlot", 100, 10)

	svc := newTestService(store)

	// No cart at all.
	_, err := svc.CreateOrder(context.Background(), 7, "254712345678", validInput)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindBusiness))
	assert.Equal(t, "Cart is empty", apperr.Message(err))

	// Cart exists but holds nothing.
	store.addCart(7)
	_, err = svc.CreateOrder(context.Background(), 7, "254712345678", validInput)
	assert.True(t, apperr.IsKind(err, apperr.KindBusiness))

	// No side effects either way.
	assert.Equal(t, 10, store.products[1].CountInStock)
	assert.Empty(t, store.orders)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, "Merlot", 100, 1)
	store.addCart(7, models.CartItem{ProductID: 1, Quantity: 3})

	svc := newTestService(store)
	_, err := svc.CreateOrder(context.Background(), 7, "254712345678", validInput)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindBusiness))
	assert.Contains(t, apperr.Message(err), "out of stock")

	// Whole checkout rejected: nothing decremented, cart kept.
	assert.Equal(t, 1, store.products[1].CountInStock)
	assert.Empty(t, store.orders)
	assert.NotNil(t, store.carts[7])
}

func TestCreateOrder_ProductGone(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, "Merlot", 100, 5)
	store.addCart(7,
		models.CartItem{ProductID: 1, Quantity: 1},
		models.CartItem{ProductID: 99, Quantity: 1}, // removed from catalog
	)

	svc := newTestService(store)
	_, err := svc.CreateOrder(context.Background(), 7, "254712345678", validInput)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindBusiness))
	assert.Equal(t, 5, store.products[1].CountInStock)
	assert.Empty(t, store.orders)
}

func TestCreateOrder_RepricesFromLiveProduct(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, "Merlot", 150, 10) // price changed since add-to-cart
	store.addCart(7, models.CartItem{ProductID: 1, Name: "Merlot", Price: 100, Quantity: 2})

	svc := newTestService(store)
	order, err := svc.CreateOrder(context.Background(), 7, "254712345678", validInput)
	require.NoError(t, err)

	// The stale snapshot price is ignored; the live price is authoritative.
	assert.Equal(t, 300.0, order.Subtotal)
	assert.Equal(t, 150.0, order.Items[0].Price)
}

func TestCreateOrder_ValidatesInput(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, "Merlot", 100, 10)
	store.addCart(7, models.CartItem{ProductID: 1, Quantity: 1})
	svc := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), 7, "254712345678", Input{PaymentMethod: "COD", Town: "Westlands"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.CreateOrder(context.Background(), 7, "254712345678", Input{
		PaymentMethod: "BITCOIN", County: "Nairobi", Town: "Westlands",
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCreateOrder_LowercasePaymentMethod(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, "Merlot", 100, 10)
	store.addCart(7, models.CartItem{ProductID: 1, Quantity: 1})

	svc := newTestService(store)
	order, err := svc.CreateOrder(context.Background(), 7, "254712345678", Input{
		PaymentMethod: "mpesa", County: "Nairobi", Town: "Westlands",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentMethodMpesa, order.PaymentMethod)
}

func TestCreateOrder_RetriesOrderNumberCollision(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, "Merlot", 100, 10)
	store.addCart(7, models.CartItem{ProductID: 1, Quantity: 1})
	store.conflicts = 2

	svc := newTestService(store)
	order, err := svc.CreateOrder(context.Background(), 7, "254712345678", validInput)
	require.NoError(t, err)
	assert.NotEmpty(t, order.OrderNumber)
	assert.Len(t, store.orders, 1)
}

func TestCreateOrder_ConcurrentNoOversell(t *testing.T) {
	const buyers = 8
	store := newFakeStore()
	store.addProduct(1, "Merlot", 100, buyers-1)
	for u := int64(1); u <= buyers; u++ {
		store.addCart(u, models.CartItem{ProductID: 1, Quantity: 1})
	}

	svc := newTestService(store)

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateOrder(context.Background(), int64(i+1), "254712345678", validInput)
		}(i)
	}
	wg.Wait()

	succeeded, failed := 0, 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		failed++
		assert.True(t, apperr.IsKind(err, apperr.KindBusiness), "unexpected error: %v", err)
	}

	assert.Equal(t, buyers-1, succeeded)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 0, store.products[1].CountInStock)
}

func TestCreateOrder_TotalInvariant(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, "Merlot", 999.5, 100)
	store.addProduct(2, "Gin", 1250, 100)
	store.addCart(7,
		models.CartItem{ProductID: 1, Quantity: 3},
		models.CartItem{ProductID: 2, Quantity: 1},
	)

	svc := newTestService(store)
	order, err := svc.CreateOrder(context.Background(), 7, "254712345678", validInput)
	require.NoError(t, err)
	assert.Equal(t, order.Subtotal+order.DeliveryFee, order.TotalAmount)
	assert.Equal(t, 999.5*3+1250, order.Subtotal)
}
