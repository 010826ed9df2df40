package models

import "time"

// CartItem is a denormalized snapshot of the product taken at add-time.
// Name, price and image are "last known" values for display; checkout
// re-prices from the live product record.
type CartItem struct {
	ID        int64     `json:"-" db:"id"`
	CartID    int64     `json:"-" db:"cart_id"`
	ProductID int64     `json:"product" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	Price     float64   `json:"price" db:"price"`
	Image     string    `json:"image" db:"image"`
	Quantity  int       `json:"quantity" db:"quantity"`
	AddedAt   time.Time `json:"addedAt" db:"added_at"`
}

// Cart is owned by exactly one user. It is deleted on successful checkout
// or an explicit clear.
type Cart struct {
	ID        int64      `json:"_id" db:"id"`
	UserID    int64      `json:"user" db:"user_id"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Item returns the cart item for the given product, or nil.
func (c *Cart) Item(productID int64) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}
