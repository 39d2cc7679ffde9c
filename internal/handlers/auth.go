package handlers

import (
	"errors"
	"net/http"

	"github.com/bluecarbon/registry/internal/middleware"
	"github.com/bluecarbon/registry/internal/models"
	"github.com/bluecarbon/registry/internal/services"
	"github.com/bluecarbon/registry/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService  *services.AuthService
	jwtConfig    middleware.JWTConfig
	cookieSecure bool
	logger       *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, jwtConfig middleware.JWTConfig, cookieSecure bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		jwtConfig:    jwtConfig,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// setSession issues a JWT for user and stores it in an HTTP-only cookie
func (h *AuthHandler) setSession(c *gin.Context, user *models.User) bool {
	token, err := middleware.GenerateToken(user.ID.String(), user.Email, h.jwtConfig)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return false
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.jwtConfig.CookieName, token, int(h.jwtConfig.Expiration.Seconds()), "/", "", h.cookieSecure, true)
	return true
}

// Signup handles account creation
func (h *AuthHandler) Signup(c *gin.Context) {
	var req services.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, code, err := h.authService.Signup(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		case errors.Is(err, services.ErrCaptchaFailed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "reCAPTCHA verification failed"})
		default:
			h.logger.Error("signup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Signup failed"})
		}
		return
	}

	if !h.setSession(c, user) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user, "recoveryCode": code})
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.Login(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		case errors.Is(err, services.ErrCaptchaFailed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "reCAPTCHA verification failed"})
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		}
		return
	}

	if !h.setSession(c, user) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Recover resets a password with a recovery code and logs the user in
func (h *AuthHandler) Recover(c *gin.Context) {
	var req services.RecoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, code, err := h.authService.Recover(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or recovery code"})
			return
		}
		h.logger.Error("recovery failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Recovery failed"})
		return
	}

	if !h.setSession(c, user) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "recoveryCode": code})
}

// Me returns the authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		h.logger.Error("failed to load user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.jwtConfig.CookieName, "", -1, "/", "", h.cookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
