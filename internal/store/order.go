package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/blackpearlke/blackpearl-api/internal/apperr"
	"github.com/blackpearlke/blackpearl-api/internal/database"
	"github.com/blackpearlke/blackpearl-api/internal/models"
)

type OrderStore struct {
	db *database.DB
}

func NewOrderStore(db *database.DB) *OrderStore {
	return &OrderStore{db: db}
}

const orderColumns = `id, order_number, user_id, phone, subtotal, delivery_fee, total_amount,
	currency, payment_method, payment_status, payment_reference, paid_at, delivery_address,
	delivery_city, delivery_status, sms_updates_enabled, notes, created_at, updated_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		o      models.Order
		paidAt sql.NullTime
		notes  sql.NullString
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Phone, &o.Subtotal, &o.DeliveryFee,
		&o.TotalAmount, &o.Currency, &o.PaymentMethod, &o.PaymentStatus, &o.PaymentReference,
		&paidAt, &o.DeliveryAddress, &o.DeliveryCity, &o.DeliveryStatus, &o.SMSUpdatesEnabled,
		&notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		o.PaidAt = &paidAt.Time
	}
	o.Notes = notes.String
	return &o, nil
}

func (s *OrderStore) loadItems(ctx context.Context, orders ...*models.Order) error {
	for _, o := range orders {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, order_id, product_id, name, image, price, quantity
			FROM order_items WHERE order_id = ? ORDER BY id`, o.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch order items: %w", err)
		}
		for rows.Next() {
			var item models.OrderItem
			if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name,
				&item.Image, &item.Price, &item.Quantity); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan order item: %w", err)
			}
			o.Items = append(o.Items, item)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
	}
	return nil
}

// ByID returns the order with items, or nil when it does not exist.
func (s *OrderStore) ByID(ctx context.Context, id int64) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	if err := s.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ByPaymentReference resolves an order from a provider transaction
// reference (M-Pesa CheckoutRequestID or Stripe PaymentIntent id).
// Returns nil when no order carries the reference.
func (s *OrderStore) ByPaymentReference(ctx context.Context, ref string) (*models.Order, error) {
	if ref == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_reference = ?`, ref)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order by reference: %w", err)
	}
	if err := s.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListByUser returns the user's orders, newest first.
func (s *OrderStore) ListByUser(ctx context.Context, userID int64) ([]*models.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, s.loadItems(ctx, orders...)
}

// AdminFilter narrows the admin order listing.
type AdminFilter struct {
	DeliveryStatus string
	PaymentMethod  string
	Search         string // matches order_number or phone
	Page           int
	Limit          int
}

// AdminList returns a page of orders matching the filter plus the total
// match count.
func (s *OrderStore) AdminList(ctx context.Context, f AdminFilter) ([]*models.Order, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}

	var conds []string
	var args []any
	if f.DeliveryStatus != "" {
		conds = append(conds, "delivery_status = ?")
		args = append(args, f.DeliveryStatus)
	}
	if f.PaymentMethod != "" {
		conds = append(conds, "payment_method = ?")
		args = append(args, f.PaymentMethod)
	}
	if f.Search != "" {
		conds = append(conds, "(order_number LIKE ? OR phone LIKE ?)")
		args = append(args, "%"+f.Search+"%", "%"+f.Search+"%")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders`+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := s.loadItems(ctx, orders...); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// SetPaymentReference records the provider transaction reference and
// payment method after a push payment is initiated. The payment status is
// deliberately untouched; only the callback moves it.
func (s *OrderStore) SetPaymentReference(ctx context.Context, orderID int64, method models.PaymentMethod, ref string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET payment_method = ?, payment_reference = ? WHERE id = ?`,
		method, ref, orderID)
	if err != nil {
		return fmt.Errorf("failed to set payment reference: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("Order not found")
	}
	return nil
}

// TransitionPayment moves payment_status from one state to another with a
// compare-and-swap so late or replayed callbacks cannot double-apply.
// Returns false when the order was not in the expected state.
func (s *OrderStore) TransitionPayment(ctx context.Context, orderID int64, from, to models.PaymentStatus, paidAt *time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET payment_status = ?, paid_at = COALESCE(?, paid_at) WHERE id = ? AND payment_status = ?`,
		to, paidAt, orderID, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition payment status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateDeliveryStatus is the admin path for moving an order through the
// fulfilment states.
func (s *OrderStore) UpdateDeliveryStatus(ctx context.Context, orderID int64, status models.DeliveryStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET delivery_status = ? WHERE id = ?`, status, orderID)
	if err != nil {
		return fmt.Errorf("failed to update delivery status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("Order not found")
	}
	return nil
}

// DashboardStats aggregates the numbers the admin dashboard shows.
type DashboardStats struct {
	TotalOrders   int                `json:"totalOrders"`
	TotalRevenue  float64            `json:"totalRevenue"`
	PendingOrders int                `json:"pendingOrders"`
	Breakdown     map[string]float64 `json:"paymentBreakdown"`
}

func (s *OrderStore) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{Breakdown: map[string]float64{"cash": 0, "mpesa": 0, "stripe": 0}}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(delivery_status = 'PENDING'), 0)
		FROM orders`).Scan(&stats.TotalOrders, &stats.TotalRevenue, &stats.PendingOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate orders: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT payment_method, COALESCE(SUM(total_amount), 0) FROM orders GROUP BY payment_method`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate payment breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var method string
		var amount float64
		if err := rows.Scan(&method, &amount); err != nil {
			return nil, err
		}
		switch models.PaymentMethod(method) {
		case models.PaymentMethodCOD:
			stats.Breakdown["cash"] = amount
		case models.PaymentMethodMpesa:
			stats.Breakdown["mpesa"] = amount
		case models.PaymentMethodStripe:
			stats.Breakdown["stripe"] = amount
		}
	}
	return stats, rows.Err()
}

// countOrdersForYear feeds sequential order number generation.
func countOrdersForYear(ctx context.Context, q Querier, year int) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE order_number LIKE ?`,
		fmt.Sprintf("BP-%d-%%", year)).Scan(&n)
	return n, err
}

// insertOrder persists the order and its item snapshots. A duplicate
// order_number surfaces as a conflict so the caller can regenerate and
// retry.
func insertOrder(ctx context.Context, q Querier, o *models.Order) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO orders (order_number, user_id, phone, subtotal, delivery_fee, total_amount,
			currency, payment_method, payment_status, delivery_address, delivery_city,
			delivery_status, sms_updates_enabled, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderNumber, o.UserID, o.Phone, o.Subtotal, o.DeliveryFee, o.TotalAmount,
		o.Currency, o.PaymentMethod, o.PaymentStatus, o.DeliveryAddress, o.DeliveryCity,
		o.DeliveryStatus, o.SMSUpdatesEnabled, o.Notes)
	if isDuplicate(err) {
		return apperr.Conflict("Order number already taken")
	}
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	o.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		res, err := q.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, image, price, quantity)
			VALUES (?, ?, ?, ?, ?, ?)`,
			item.OrderID, item.ProductID, item.Name, item.Image, item.Price, item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
		if item.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}
	return nil
}
