// Package checkout implements the order-creation and stock-reservation
// sequence: load cart, validate stock against live products, snapshot an
// order, decrement stock, clear the cart. The whole sequence runs inside
// a single storage transaction so partial completion cannot leak out.
package checkout

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/blackpearlke/blackpearl-api/internal/apperr"
	"github.com/blackpearlke/blackpearl-api/internal/config"
	"github.com/blackpearlke/blackpearl-api/internal/models"
)

// Tx exposes the storage operations checkout needs, scoped to one
// transaction. DecrementStock must be atomic: it applies only when enough
// stock remains and reports whether it did.
type Tx interface {
	CartByUser(ctx context.Context, userID int64) (*models.Cart, error)
	ProductByID(ctx context.Context, id int64) (*models.Product, error)
	CountOrdersForYear(ctx context.Context, year int) (int, error)
	InsertOrder(ctx context.Context, o *models.Order) error
	DecrementStock(ctx context.Context, productID int64, qty int) (bool, error)
	DeleteCart(ctx context.Context, cartID int64) error
}

// Store runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

type Service struct {
	store Store
	cfg   config.CheckoutConfig
	now   func() time.Time
}

func NewService(store Store, cfg config.CheckoutConfig) *Service {
	return &Service{store: store, cfg: cfg, now: time.Now}
}

// Input is the delivery information supplied at checkout.
type Input struct {
	PaymentMethod     string
	County            string
	Town              string
	Notes             string
	SMSUpdatesEnabled bool
}

// orderNumberAttempts bounds regeneration when two checkouts race to the
// same sequential number.
const orderNumberAttempts = 3

// CreateOrder turns the user's cart into an order. All-or-nothing: any
// validation failure leaves cart, stock and orders untouched.
//
// Pricing note: the subtotal is recomputed from the live product record,
// not the snapshot price stored in the cart. The cart snapshot is "last
// known" for display only.
func (s *Service) CreateOrder(ctx context.Context, userID int64, phone string, input Input) (*models.Order, error) {
	if input.County == "" || input.Town == "" {
		return nil, apperr.Validation("Delivery location is required")
	}

	method := models.PaymentMethod(strings.ToUpper(input.PaymentMethod))
	if method == "" {
		method = models.PaymentMethodCOD
	}
	if !models.ValidPaymentMethod(method) {
		return nil, apperr.Validation("Invalid payment method")
	}

	var order *models.Order
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		cart, err := tx.CartByUser(ctx, userID)
		if err != nil {
			return err
		}
		if cart.IsEmpty() {
			return apperr.Business("Cart is empty")
		}

		var subtotal float64
		items := make([]models.OrderItem, 0, len(cart.Items))
		for _, ci := range cart.Items {
			product, err := tx.ProductByID(ctx, ci.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return apperr.Business("One or more products no longer exist")
			}
			if product.CountInStock < ci.Quantity {
				return apperr.Business(fmt.Sprintf("%s is out of stock", product.Name))
			}

			subtotal += product.Price * float64(ci.Quantity)
			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				Image:     product.MainImage(),
				Price:     product.Price,
				Quantity:  ci.Quantity,
			})
		}

		order = &models.Order{
			UserID:            userID,
			Phone:             phone,
			Items:             items,
			Subtotal:          subtotal,
			DeliveryFee:       s.cfg.DeliveryFee,
			TotalAmount:       subtotal + s.cfg.DeliveryFee,
			Currency:          s.cfg.Currency,
			PaymentMethod:     method,
			PaymentStatus:     models.PaymentPending,
			DeliveryAddress:   fmt.Sprintf("%s, %s", input.Town, input.County),
			DeliveryCity:      s.cfg.DeliveryCity,
			DeliveryStatus:    models.DeliveryPending,
			SMSUpdatesEnabled: input.SMSUpdatesEnabled,
			Notes:             input.Notes,
		}

		if err := s.insertWithFreshNumber(ctx, tx, order); err != nil {
			return err
		}

		for _, item := range order.Items {
			applied, err := tx.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if !applied {
				// A concurrent checkout won the remaining stock between
				// the read above and this conditional update.
				return apperr.Business(fmt.Sprintf("%s is out of stock", item.Name))
			}
		}

		return tx.DeleteCart(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// insertWithFreshNumber generates a sequential per-year order number and
// inserts the order, regenerating on a unique-key collision.
func (s *Service) insertWithFreshNumber(ctx context.Context, tx Tx, order *models.Order) error {
	year := s.now().Year()
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		count, err := tx.CountOrdersForYear(ctx, year)
		if err != nil {
			return err
		}
		order.OrderNumber = fmt.Sprintf("BP-%d-%06d", year, count+1+attempt)

		err = tx.InsertOrder(ctx, order)
		if err == nil {
			return nil
		}
		if !apperr.IsKind(err, apperr.KindConflict) {
			return err
		}
		log.Printf("order number %s collided, retrying", order.OrderNumber)
	}
	return apperr.Wrap(apperr.KindConflict, "Failed to allocate order number", nil)
}
