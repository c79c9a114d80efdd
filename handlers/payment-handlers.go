package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type initiatePaymentRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid4"`
}

// InitiatePayment opens a checkout with the simulated gateway and hands the
// frontend the page to redirect to.
func (h *Handler) InitiatePayment(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	var req initiatePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	checkout, err := h.pay.Initiate(c.Request.Context(), claims.Subject, req.OrderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkout)
}

// GetPayment reads the payment attached to one of the caller's orders.
func (h *Handler) GetPayment(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	payment, err := h.pay.GetForOrder(c.Request.Context(), claims.Subject, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// MockBkashPage stands in for the gateway's hosted checkout. It lets manual
// testing confirm or abandon a payment without provider credentials.
func (h *Handler) MockBkashPage(c *gin.Context) {
	paymentID := c.Query("paymentID")

	page := fmt.Sprintf(`
		<h1>Mock bKash Payment Page</h1>
		<p>Payment ID: %s</p>
		<button onclick="window.location.href='/api/v1/payments/bkash/callback?paymentID=%s&status=success'">
			Confirm Payment (Success)
		</button>
		<br><br>
		<button onclick="window.location.href='/api/v1/payments/bkash/callback?paymentID=%s&status=failure'">
			Cancel Payment
		</button>
	`, paymentID, paymentID, paymentID)

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// BkashCallback is where the gateway lands after the customer acts. Success
// settles the payment; anything else bounces back to the frontend's failure
// page. Settlement is idempotent, so a replayed callback is harmless.
func (h *Handler) BkashCallback(c *gin.Context) {
	paymentID := c.Query("paymentID")
	status := c.Query("status")

	if status == "cancel" || status == "failure" {
		c.Redirect(http.StatusFound, fmt.Sprintf("%s/payment/failed?message=%s", h.frontendURL, status))
		return
	}

	payment, err := h.pay.Execute(c.Request.Context(), paymentID)
	if err != nil {
		c.Redirect(http.StatusFound, fmt.Sprintf("%s/payment/failed?message=payment-failed", h.frontendURL))
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("%s/payment/success?trxID=%s", h.frontendURL, payment.TransactionID))
}
