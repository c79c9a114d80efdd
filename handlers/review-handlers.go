package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Rifate-nur-shawn/Ecom-server/internal/reviews"
)

func (h *Handler) CreateReview(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	var nr reviews.NewReview
	if !h.bindJSON(c, &nr) {
		return
	}

	review, err := h.rev.Create(c.Request.Context(), claims.Subject, nr)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *Handler) ListProductReviews(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	var rating *int
	if v, err := strconv.Atoi(c.Query("rating")); err == nil && v >= 1 && v <= 5 {
		rating = &v
	}

	result, err := h.rev.ListForProduct(c.Request.Context(), c.Param("id"), page, limit, rating)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetReview(c *gin.Context) {
	review, err := h.rev.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

func (h *Handler) MyReviews(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	list, err := h.rev.ListForUser(c.Request.Context(), claims.Subject)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list})
}

func (h *Handler) UpdateReview(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	var ur reviews.UpdateReview
	if !h.bindJSON(c, &ur) {
		return
	}

	review, err := h.rev.Update(c.Request.Context(), claims.Subject, c.Param("id"), ur)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

func (h *Handler) DeleteReview(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	if err := h.rev.Delete(c.Request.Context(), claims.Subject, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully"})
}
