package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rifate-nur-shawn/Ecom-server/internal/addresses"
)

func (h *Handler) ListAddresses(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	list, err := h.addr.ListForUser(c.Request.Context(), claims.Subject)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": list})
}

func (h *Handler) CreateAddress(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	var na addresses.NewAddress
	if !h.bindJSON(c, &na) {
		return
	}

	address, err := h.addr.Insert(c.Request.Context(), claims.Subject, na)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, address)
}

func (h *Handler) UpdateAddress(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	var na addresses.NewAddress
	if !h.bindJSON(c, &na) {
		return
	}

	address, err := h.addr.Update(c.Request.Context(), claims.Subject, c.Param("id"), na)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, address)
}

func (h *Handler) DeleteAddress(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	if err := h.addr.Delete(c.Request.Context(), claims.Subject, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Address deleted successfully"})
}
