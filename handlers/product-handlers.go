package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Rifate-nur-shawn/Ecom-server/internal/products"
)

func (h *Handler) ListProducts(c *gin.Context) {
	f := products.Filters{
		Search:     c.Query("search"),
		CategoryID: c.Query("category_id"),
		InStock:    c.Query("in_stock") == "true",
		SortBy:     c.Query("sort"),
	}
	if v, err := strconv.ParseInt(c.Query("min_price"), 10, 64); err == nil {
		f.MinPrice = &v
	}
	if v, err := strconv.ParseInt(c.Query("max_price"), 10, 64); err == nil {
		f.MaxPrice = &v
	}
	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	list, total, err := h.p.List(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products": list,
		"pagination": gin.H{
			"page":  f.Page,
			"limit": f.Limit,
			"total": total,
		},
	})
}

// GetProduct resolves the path value as an id when it parses as a uuid and as
// a slug otherwise, so both /products/<uuid> and /products/blue-mug work.
func (h *Handler) GetProduct(c *gin.Context) {
	key := c.Param("id")

	var (
		product products.Product
		err     error
	)
	if _, parseErr := uuid.Parse(key); parseErr == nil {
		product, err = h.p.GetByID(c.Request.Context(), key)
	} else {
		product, err = h.p.GetBySlug(c.Request.Context(), key)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var np products.NewProduct
	if !h.bindJSON(c, &np) {
		return
	}

	product, err := h.p.InsertProduct(c.Request.Context(), np)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	var up products.UpdateProduct
	if !h.bindJSON(c, &up) {
		return
	}

	product, err := h.p.Update(c.Request.Context(), c.Param("id"), up)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	if err := h.p.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

func (h *Handler) AddProductImage(c *gin.Context) {
	var ni products.NewImage
	if !h.bindJSON(c, &ni) {
		return
	}

	image, err := h.p.AddImage(c.Request.Context(), c.Param("id"), ni)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, image)
}

func (h *Handler) DeleteProductImage(c *gin.Context) {
	if err := h.p.DeleteImage(c.Request.Context(), c.Param("imageID")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted successfully"})
}

func (h *Handler) SetPrimaryImage(c *gin.Context) {
	image, err := h.p.SetPrimaryImage(c.Request.Context(), c.Param("imageID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, image)
}
