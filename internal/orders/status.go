package orders

import (
	"time"

	"github.com/Rifate-nur-shawn/Ecom-server/pkg/apperror"
)

// EstimatedDeliveryLead is stamped on an order the first time it ships.
const EstimatedDeliveryLead = 7 * 24 * time.Hour

var validStatuses = map[string]bool{
	StatusPending:    true,
	StatusPaid:       true,
	StatusProcessing: true,
	StatusShipped:    true,
	StatusDelivered:  true,
	StatusCancelled:  true,
}

// ValidStatus reports whether s names a known order status.
func ValidStatus(s string) bool { return validStatuses[s] }

// cancelGuard enforces the customer-cancellation rule: only orders that have
// not entered the paid pipeline may be cancelled, and cancelling twice is
// reported distinctly.
func cancelGuard(status string) error {
	switch status {
	case StatusCancelled:
		return apperror.BadRequestf("order is already cancelled")
	case StatusPaid, StatusProcessing, StatusShipped, StatusDelivered:
		return apperror.BadRequestf("cannot cancel orders that are paid, processing, shipped, or delivered")
	default:
		return nil
	}
}

// lineTotal computes one snapshot line's contribution to the order total.
func lineTotal(unitPrice int64, quantity int) int64 {
	return unitPrice * int64(quantity)
}

// mergeLines folds repeated product ids into one line each, keeping first
// occurrence order. Stock validation must see the combined quantity, not each
// line against the same snapshot.
func mergeLines(items []NewItem) []NewItem {
	merged := make([]NewItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		if i, ok := index[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	return merged
}
