// Package logkey centralizes the attribute keys used in structured logs so
// log queries stay stable across the codebase.
package logkey

const (
	TraceID = "trace_id"
	ERROR   = "error"
	UserID  = "user_id"
	OrderID = "order_id"
)
