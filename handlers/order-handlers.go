package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Rifate-nur-shawn/Ecom-server/internal/orders"
)

type createOrderRequest struct {
	Items             []orders.NewItem `json:"items" validate:"required,min=1,dive"`
	ShippingAddressID *string          `json:"shipping_address_id" validate:"omitempty,uuid4"`
}

// CreateOrder places an order for explicitly listed lines, bypassing the
// cart.
func (h *Handler) CreateOrder(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	var req createOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.o.Create(c.Request.Context(), claims.Subject, req.Items, req.ShippingAddressID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

type checkoutRequest struct {
	ShippingAddressID *string `json:"shipping_address_id" validate:"omitempty,uuid4"`
}

// Checkout turns the whole cart into an order.
func (h *Handler) Checkout(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	var req checkoutRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}

	order, err := h.o.CreateFromCart(c.Request.Context(), claims.Subject, req.ShippingAddressID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) ListMyOrders(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	list, err := h.o.ListForUser(c.Request.Context(), claims.Subject)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Handler) GetOrder(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	order, err := h.o.GetForUser(c.Request.Context(), claims.Subject, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) CancelOrder(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	if err := h.o.Cancel(c.Request.Context(), claims.Subject, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully"})
}

func (h *Handler) ListAllOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	list, total, err := h.o.ListAll(c.Request.Context(), c.Query("status"), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": list,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

type updateOrderStatusRequest struct {
	Status         string  `json:"status" validate:"required"`
	TrackingNumber *string `json:"tracking_number" validate:"omitempty,max=100"`
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req updateOrderStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.o.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.TrackingNumber)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.o.Dashboard(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
