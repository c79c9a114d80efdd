package payments

import "time"

const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"

	// Provider names the simulated gateway. Swapping in the real API keeps
	// the same record shape.
	Provider = "bkash"
)

type Payment struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	Amount        int64     `json:"amount"`
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	Provider      string    `json:"provider"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Checkout is what Initiate hands back to the frontend: the reference to
// quote on the callback and the gateway page to redirect the customer to.
type Checkout struct {
	PaymentID string `json:"paymentID"`
	BkashURL  string `json:"bkashURL"`
}
