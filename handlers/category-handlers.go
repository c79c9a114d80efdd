package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Rifate-nur-shawn/Ecom-server/internal/categories"
)

func (h *Handler) ListCategories(c *gin.Context) {
	tree, err := h.cat.ListTree(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": tree})
}

func (h *Handler) GetCategory(c *gin.Context) {
	key := c.Param("id")

	var (
		category categories.Category
		err      error
	)
	if _, parseErr := uuid.Parse(key); parseErr == nil {
		category, err = h.cat.GetByID(c.Request.Context(), key)
	} else {
		category, err = h.cat.GetBySlug(c.Request.Context(), key)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var nc categories.NewCategory
	if !h.bindJSON(c, &nc) {
		return
	}

	category, err := h.cat.Insert(c.Request.Context(), nc)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	var uc categories.UpdateCategory
	if !h.bindJSON(c, &uc) {
		return
	}

	category, err := h.cat.Update(c.Request.Context(), c.Param("id"), uc)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	if err := h.cat.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
