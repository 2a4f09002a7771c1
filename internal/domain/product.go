package domain

import "time"

// Product is a catalog item as the backend returns it. Image is a storage
// object key, not a URL.
type Product struct {
	ID         int64     `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Price      float64   `json:"price"`
	Size       string    `json:"size"`
	CategoryID *int64    `json:"categoryId"`
	Image      string    `json:"image"`
}

// ProductDetail is a product joined with its category name.
type ProductDetail struct {
	Product
	Category *CategoryName `json:"categories"`
}

type CategoryName struct {
	Name string `json:"name"`
}

// CategoryLabel returns the joined category name or a placeholder.
func (d *ProductDetail) CategoryLabel() string {
	if d.Category == nil || d.Category.Name == "" {
		return "No category"
	}
	return d.Category.Name
}

// NewProduct is the body of a product insert.
type NewProduct struct {
	Price      float64 `json:"price"`
	Size       string  `json:"size"`
	CategoryID *int64  `json:"categoryId"`
	Image      string  `json:"image"`
}

// ProductPatch is a partial update; nil fields are left untouched.
type ProductPatch struct {
	Price      *float64 `json:"price,omitempty"`
	Size       *string  `json:"size,omitempty"`
	CategoryID *int64   `json:"categoryId,omitempty"`
}

// Apply merges the patch into a copy of p.
func (patch ProductPatch) Apply(p Product) Product {
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Size != nil {
		p.Size = *patch.Size
	}
	if patch.CategoryID != nil {
		id := *patch.CategoryID
		p.CategoryID = &id
	}
	return p
}

// Category represents a product category
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
