package store

import (
	"context"
	"fmt"

	"github.com/blackpearlke/blackpearl-api/internal/checkout"
	"github.com/blackpearlke/blackpearl-api/internal/database"
	"github.com/blackpearlke/blackpearl-api/internal/models"
)

// CheckoutStore adapts the SQL stores to the checkout transaction
// contract. All operations issued through it share one sql.Tx.
type CheckoutStore struct {
	db *database.DB
}

func NewCheckoutStore(db *database.DB) *CheckoutStore {
	return &CheckoutStore{db: db}
}

var _ checkout.Store = (*CheckoutStore)(nil)

func (s *CheckoutStore) WithinTx(ctx context.Context, fn func(tx checkout.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&checkoutTx{q: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	return sqlTx.Commit()
}

type checkoutTx struct {
	q Querier
}

func (t *checkoutTx) CartByUser(ctx context.Context, userID int64) (*models.Cart, error) {
	return cartByUser(ctx, t.q, userID)
}

func (t *checkoutTx) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	return productByID(ctx, t.q, id)
}

func (t *checkoutTx) CountOrdersForYear(ctx context.Context, year int) (int, error) {
	return countOrdersForYear(ctx, t.q, year)
}

func (t *checkoutTx) InsertOrder(ctx context.Context, o *models.Order) error {
	return insertOrder(ctx, t.q, o)
}

func (t *checkoutTx) DecrementStock(ctx context.Context, productID int64, qty int) (bool, error) {
	return decrementStock(ctx, t.q, productID, qty)
}

func (t *checkoutTx) DeleteCart(ctx context.Context, cartID int64) error {
	return deleteCartByID(ctx, t.q, cartID)
}
