package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetCart(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	basket, err := h.crt.GetOrCreate(c.Request.Context(), claims.Subject)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, basket)
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

func (h *Handler) AddCartItem(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	var req addCartItemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	basket, err := h.crt.AddItem(c.Request.Context(), claims.Subject, req.ProductID, req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, basket)
}

type updateCartItemRequest struct {
	// Zero removes the line.
	Quantity int `json:"quantity" validate:"min=0"`
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	var req updateCartItemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	basket, err := h.crt.UpdateItem(c.Request.Context(), claims.Subject, c.Param("id"), req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, basket)
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	if err := h.crt.RemoveItem(c.Request.Context(), claims.Subject, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}

func (h *Handler) ClearCart(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	if err := h.crt.Clear(c.Request.Context(), claims.Subject); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
