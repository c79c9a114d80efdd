package orders

import "time"

const (
	StatusPending    = "PENDING"
	StatusPaid       = "PAID"
	StatusProcessing = "PROCESSING"
	StatusShipped    = "SHIPPED"
	StatusDelivered  = "DELIVERED"
	StatusCancelled  = "CANCELLED"
)

type Order struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	Status            string     `json:"status"`
	TotalAmount       int64      `json:"total_amount"`
	ShippingAddressID *string    `json:"shipping_address_id,omitempty"`
	TrackingNumber    *string    `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Items []Item `json:"items,omitempty"`
}

// Item is an immutable snapshot of a product line at purchase time. Later
// product edits never reach it.
type Item struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   int64     `json:"unit_price"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewItem is one requested order line.
type NewItem struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}
