package cart

import "time"

type Item struct {
	ID          string    `json:"id"`
	CartID      string    `json:"cart_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	UnitPrice   int64     `json:"unit_price"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Cart is the API shape: stored items plus figures derived at read time.
type Cart struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Items     []Item    `json:"items"`
	Total     int64     `json:"total"`
	ItemCount int       `json:"item_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Derive fills Total and ItemCount from the item lines. These are never
// stored.
func (c *Cart) Derive() {
	c.Total = 0
	c.ItemCount = 0
	for _, it := range c.Items {
		c.Total += it.UnitPrice * int64(it.Quantity)
		c.ItemCount += it.Quantity
	}
}
