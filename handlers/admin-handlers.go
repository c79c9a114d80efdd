package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	list, total, err := h.u.List(c.Request.Context(), c.Query("role"), c.Query("search"), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": list,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

type updateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=CUSTOMER ADMIN"`
}

func (h *Handler) UpdateUserRole(c *gin.Context) {
	var req updateUserRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.u.UpdateRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
