package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/blackpearlke/blackpearl-api/internal/apperr"
	"github.com/blackpearlke/blackpearl-api/internal/database"
	"github.com/blackpearlke/blackpearl-api/internal/models"
)

type CartStore struct {
	db *database.DB
}

func NewCartStore(db *database.DB) *CartStore {
	return &CartStore{db: db}
}

// ByUser returns the user's cart with items, or nil when no cart exists.
func (s *CartStore) ByUser(ctx context.Context, userID int64) (*models.Cart, error) {
	return cartByUser(ctx, s.db, userID)
}

func cartByUser(ctx context.Context, q Querier, userID int64) (*models.Cart, error) {
	var cart models.Cart
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = ?`, userID).
		Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, cart_id, product_id, name, price, image, quantity, added_at
		FROM cart_items WHERE cart_id = ? ORDER BY added_at`, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Name,
			&item.Price, &item.Image, &item.Quantity, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	return &cart, rows.Err()
}

// getOrCreate loads the user's cart, creating an empty one if absent.
// A concurrent create by the same user is absorbed via the unique key on
// user_id.
func (s *CartStore) getOrCreate(ctx context.Context, userID int64) (*models.Cart, error) {
	cart, err := s.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO carts (user_id) VALUES (?)`, userID)
	if err != nil && !isDuplicate(err) {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return s.ByUser(ctx, userID)
}

// AddItem adds a snapshot of the product to the user's cart. Quantities
// accumulate when the product is already in the cart.
func (s *CartStore) AddItem(ctx context.Context, userID int64, product *models.Product, quantity int) (*models.Cart, error) {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cart_items (cart_id, product_id, name, price, image, quantity)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity), added_at = CURRENT_TIMESTAMP`,
		cart.ID, product.ID, product.Name, product.Price, product.MainImage(), quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}
	return s.ByUser(ctx, userID)
}

// UpdateQuantity sets the quantity for a cart item. A quantity of zero or
// less removes the item.
func (s *CartStore) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	cart, err := s.ByUser(ctx, userID)
	if err != nil {
		return err
	}
	if cart == nil {
		return apperr.NotFound("Cart not found")
	}
	if cart.Item(productID) == nil {
		return apperr.NotFound("Item not found")
	}

	if quantity <= 0 {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?`, cart.ID, productID)
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE cart_items SET quantity = ? WHERE cart_id = ? AND product_id = ?`,
			quantity, cart.ID, productID)
	}
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return nil
}

// RemoveItem deletes a single product from the user's cart.
func (s *CartStore) RemoveItem(ctx context.Context, userID, productID int64) error {
	cart, err := s.ByUser(ctx, userID)
	if err != nil {
		return err
	}
	if cart == nil {
		return apperr.NotFound("Cart not found")
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?`, cart.ID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

// Clear deletes the user's cart entirely. Items cascade.
func (s *CartStore) Clear(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// deleteCartByID removes the cart only if it still has the id observed at
// checkout start. A cart recreated concurrently gets a new id and
// survives, closing the delete/recreate race.
func deleteCartByID(ctx context.Context, q Querier, cartID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM carts WHERE id = ?`, cartID)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
