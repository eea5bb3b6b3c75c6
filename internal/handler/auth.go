package handler

import (
	"errors"
	"net/http"

	"github.com/tdiprima/langchain-flask-api/internal/domain"
	"github.com/tdiprima/langchain-flask-api/internal/registry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	registry *registry.Registry
	logger   *zap.SugaredLogger
}

func NewAuthHandler(reg *registry.Registry, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{registry: reg, logger: logger}
}

// RegisterReq 注册请求DTO
type RegisterReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginReq 登录请求DTO
type LoginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingCreds.Error()})
		return
	}

	if err := h.registry.Register(c.Request.Context(), req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, domain.ErrUserAlreadyExists), errors.Is(err, domain.ErrInvalidUsername):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Errorw("Register failed", "username", req.Username, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User " + req.Username + " registered successfully",
		"status":  "success",
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingCreds.Error()})
		return
	}

	res, err := h.registry.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPassword) || errors.Is(err, domain.ErrMissingCreds) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrInvalidPassword.Error()})
			return
		}
		h.logger.Errorw("Login failed", "username", req.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "User " + req.Username + " logged in",
		"status":        "success",
		"session_id":    res.SessionID,
		"access_token":  res.AccessToken.Token,
		"refresh_token": res.RefreshToken.Token,
		"expires_at":    res.AccessToken.ExpiresAt.Unix(),
	})
}

// LogoutReq optionally overrides which session to invalidate; the token's
// own session is the default.
type LogoutReq struct {
	SessionID string `json:"session_id"`
}

func (h *AuthHandler) Logout(c *gin.Context) {
	username := c.GetString("username")
	sessionID := c.GetString("session_id")

	var req LogoutReq
	if err := c.ShouldBindJSON(&req); err == nil && req.SessionID != "" {
		sessionID = req.SessionID
	}

	// Idempotent: logging out a session that is already gone still succeeds.
	h.registry.Logout(c.Request.Context(), username, sessionID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
		"status":  "success",
	})
}
