package models

import "time"

// Product is a registered item. Code is the uniqueness key: no two
// products in the registry share the same trimmed code.
type Product struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// Aggregate summarizes the registry for the stats panel.
type Aggregate struct {
	Count      int     `json:"count"`
	TotalValue float64 `json:"total_value"`
}
