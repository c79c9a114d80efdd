package kafka

import "time"

const (
	TopicOrderPaid = `order-service.order-paid`
)

// OrderPaidEvent is published once per order line when a payment succeeds.
// Downstream consumers (fulfilment, analytics) key on the order id.
type OrderPaidEvent struct {
	OrderID   string    `json:"order_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}
