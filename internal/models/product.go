package models

import "time"

type Product struct {
	ID             int64     `json:"_id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Slug           string    `json:"slug" db:"slug"`
	Description    string    `json:"description" db:"description"`
	Images         []string  `json:"images" db:"images"` // stored as a JSON column
	Price          float64   `json:"price" db:"price"`
	CompareAtPrice *float64  `json:"compareAtPrice,omitempty" db:"compare_at_price"`
	Currency       string    `json:"currency" db:"currency"`
	CountInStock   int       `json:"countInStock" db:"count_in_stock"`
	SKU            string    `json:"sku,omitempty" db:"sku"`
	Category       string    `json:"category" db:"category"`
	Tags           []string  `json:"tags" db:"tags"`
	IsActive       bool      `json:"isActive" db:"is_active"`
	IsFeatured     bool      `json:"isFeatured" db:"is_featured"`
	SoldCount      int       `json:"soldCount" db:"sold_count"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// MainImage returns the primary display image, falling back to a placeholder
// so cart and order snapshots always carry something renderable.
func (p *Product) MainImage() string {
	if len(p.Images) > 0 && p.Images[0] != "" {
		return p.Images[0]
	}
	return "https://via.placeholder.com/400x400?text=No+Image"
}
