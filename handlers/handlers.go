// Package handlers binds the HTTP surface to the domain packages. Handlers
// stay thin: bind, validate, call the domain, map the error.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/Rifate-nur-shawn/Ecom-server/internal/addresses"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/auth"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/cart"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/categories"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/orders"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/payments"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/products"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/reviews"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/users"
	"github.com/Rifate-nur-shawn/Ecom-server/middleware"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/apperror"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/ctxmanage"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/logkey"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 * 1024

type Handler struct {
	u        *users.Conf
	p        *products.Conf
	cat      *categories.Conf
	addr     *addresses.Conf
	crt      *cart.Conf
	o        *orders.Conf
	pay      *payments.Conf
	rev      *reviews.Conf
	authKeys *auth.Keys
	validate *validator.Validate

	frontendURL string
}

type Deps struct {
	Users      *users.Conf
	Products   *products.Conf
	Categories *categories.Conf
	Addresses  *addresses.Conf
	Cart       *cart.Conf
	Orders     *orders.Conf
	Payments   *payments.Conf
	Reviews    *reviews.Conf
	AuthKeys   *auth.Keys

	// Redis backs the auth-endpoint rate limiter; nil disables it.
	Redis *redis.Client
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		u:           d.Users,
		p:           d.Products,
		cat:         d.Categories,
		addr:        d.Addresses,
		crt:         d.Cart,
		o:           d.Orders,
		pay:         d.Payments,
		rev:         d.Reviews,
		authKeys:    d.AuthKeys,
		validate:    validator.New(),
		frontendURL: os.Getenv("FRONTEND_URL"),
	}
}

func API(d Deps) *gin.Engine {
	r := gin.New()
	if os.Getenv("GIN_MODE") == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	m, err := middleware.NewMid(d.AuthKeys)
	if err != nil {
		panic(err)
	}
	h := NewHandler(d)

	r.Use(middleware.Logger(), gin.Recovery())
	r.GET("/ping", HealthCheck)

	// Failed logins and reset requests get tighter limits than the rest of
	// the API.
	authLimit := middleware.RateLimit(d.Redis, 10, time.Minute)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/signup", authLimit, h.Signup)
		v1.POST("/auth/login", authLimit, h.Login)
		v1.POST("/auth/forgot-password", authLimit, h.ForgotPassword)
		v1.POST("/auth/reset-password", authLimit, h.ResetPassword)

		v1.GET("/products", h.ListProducts)
		v1.GET("/products/:id", h.GetProduct)
		v1.GET("/products/:id/reviews", h.ListProductReviews)
		v1.GET("/categories", h.ListCategories)
		v1.GET("/categories/:id", h.GetCategory)
		v1.GET("/reviews/:id", h.GetReview)

		v1.GET("/payments/mock-bkash-page", h.MockBkashPage)
		v1.GET("/payments/bkash/callback", h.BkashCallback)
	}

	authed := v1.Group("")
	authed.Use(m.Authentication())
	{
		authed.GET("/auth/me", h.Profile)
		authed.PATCH("/auth/me", h.UpdateProfile)

		authed.GET("/cart", h.GetCart)
		authed.POST("/cart/items", h.AddCartItem)
		authed.PATCH("/cart/items/:id", h.UpdateCartItem)
		authed.DELETE("/cart/items/:id", h.RemoveCartItem)
		authed.DELETE("/cart", h.ClearCart)

		authed.GET("/addresses", h.ListAddresses)
		authed.POST("/addresses", h.CreateAddress)
		authed.PUT("/addresses/:id", h.UpdateAddress)
		authed.DELETE("/addresses/:id", h.DeleteAddress)

		authed.POST("/orders", h.CreateOrder)
		authed.POST("/checkout", h.Checkout)
		authed.GET("/orders", h.ListMyOrders)
		authed.GET("/orders/:id", h.GetOrder)
		authed.POST("/orders/:id/cancel", h.CancelOrder)
		authed.GET("/orders/:id/payment", h.GetPayment)

		authed.POST("/payments/initiate", h.InitiatePayment)

		authed.POST("/reviews", h.CreateReview)
		authed.GET("/my/reviews", h.MyReviews)
		authed.PATCH("/reviews/:id", h.UpdateReview)
		authed.DELETE("/reviews/:id", h.DeleteReview)
	}

	admin := v1.Group("/admin")
	admin.Use(m.Authentication(), m.Authorize(auth.RoleAdmin))
	{
		admin.POST("/products", h.CreateProduct)
		admin.PUT("/products/:id", h.UpdateProduct)
		admin.DELETE("/products/:id", h.DeleteProduct)
		admin.POST("/products/:id/images", h.AddProductImage)
		admin.DELETE("/product-images/:imageID", h.DeleteProductImage)
		admin.PATCH("/product-images/:imageID/primary", h.SetPrimaryImage)

		admin.POST("/categories", h.CreateCategory)
		admin.PUT("/categories/:id", h.UpdateCategory)
		admin.DELETE("/categories/:id", h.DeleteCategory)

		admin.GET("/orders", h.ListAllOrders)
		admin.PATCH("/orders/:id/status", h.UpdateOrderStatus)

		admin.GET("/users", h.ListUsers)
		admin.PATCH("/users/:id/role", h.UpdateUserRole)

		admin.GET("/dashboard", h.Dashboard)
	}

	return r
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// respondError logs the full error with its trace id and sends the caller
// only the classified message.
func (h *Handler) respondError(c *gin.Context, err error) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	slog.Error("request failed",
		slog.String(logkey.TraceID, traceId),
		slog.String("path", c.Request.URL.Path),
		slog.String(logkey.ERROR, err.Error()),
	)
	c.AbortWithStatusJSON(apperror.Status(err), gin.H{"error": apperror.Message(err)})
}

// bindJSON decodes and validates the request body into dst. It writes the
// error response itself; callers just return on false.
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	if c.Request.ContentLength > maxBodyBytes {
		slog.Error("request body limit breached", slog.String(logkey.TraceID, traceId),
			slog.Int64("size_received", c.Request.ContentLength))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Request body too large."})
		return false
	}

	if err := c.ShouldBindJSON(dst); err != nil {
		slog.Error("json decode error", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) && len(vErrs) > 0 {
			vErr := vErrs[0]
			slog.Error("validation failed", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.ERROR, err.Error()))
			switch vErr.Tag() {
			case "required":
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": vErr.Field() + " value missing"})
			case "min":
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": vErr.Field() + " value is less than " + vErr.Param()})
			case "max":
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": vErr.Field() + " value is more than " + vErr.Param()})
			case "email":
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": vErr.Field() + " is not a valid email"})
			default:
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": vErr.Field() + " is invalid"})
			}
			return false
		}
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return false
	}
	return true
}

// claimsOf extracts the authenticated claims; the authentication middleware
// guarantees they exist on protected routes.
func claimsOf(c *gin.Context) (auth.Claims, bool) {
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		traceId := ctxmanage.GetTraceIdOfRequest(c)
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return claims, ok
}
