package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rifate-nur-shawn/Ecom-server/internal/users"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/ctxmanage"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/logkey"
)

func (h *Handler) Signup(c *gin.Context) {
	var newUser users.NewUser
	if !h.bindJSON(c, &newUser) {
		return
	}

	user, err := h.u.InsertUser(c.Request.Context(), newUser)
	if err != nil {
		h.respondError(c, err)
		return
	}

	token, err := h.authKeys.GenerateToken(user.ID, user.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"token":   token,
		"user":    user,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.u.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	token, err := h.authKeys.GenerateToken(user.ID, user.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword always answers with the same message, so the endpoint
// cannot be used to probe which emails are registered.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.u.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		traceId := ctxmanage.GetTraceIdOfRequest(c)
		slog.Error("password reset request failed", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": users.ResetRequestMessage})
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.u.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

func (h *Handler) Profile(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	user, err := h.u.GetByID(c.Request.Context(), claims.Subject)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	claims, ok := claimsOf(c)
	if !ok {
		return
	}

	var up users.UpdateProfile
	if !h.bindJSON(c, &up) {
		return
	}

	user, err := h.u.Update(c.Request.Context(), claims.Subject, up)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
