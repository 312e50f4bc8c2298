package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"tapevault/internal/auth"
	"tapevault/internal/catalog"
	"tapevault/internal/logging"
)

// AuthHandler serves credential exchange.
type AuthHandler struct {
	store  *catalog.Store
	secret string
	ttl    time.Duration
	logger *slog.Logger
}

// NewAuthHandler builds the login handler.
func NewAuthHandler(logger *slog.Logger, store *catalog.Store, secret string, ttl time.Duration) *AuthHandler {
	return &AuthHandler{
		store:  store,
		secret: secret,
		ttl:    ttl,
		logger: logging.WithComponent(logger, "auth"),
	}
}

// Register wires the auth routes.
func (h *AuthHandler) Register(e *echo.Echo) {
	e.POST("/auth/login", h.login)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "malformed request body"})
	}

	user, err := auth.Login(c.Request().Context(), h.store, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrInactiveAccount) {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "invalid credentials"})
		}
		h.logger.Error("login lookup", logging.Error(err))
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: "storage is unavailable"})
	}

	token, expiresAt, err := auth.GenerateToken(user.ID, user.Role, h.secret, h.ttl)
	if err != nil {
		h.logger.Error("issue token", logging.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "internal error"})
	}

	return c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
	})
}
