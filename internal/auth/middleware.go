package auth

import (
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const contextKey = "user"

// JWTMiddleware validates bearer tokens on every request the skipper does
// not exempt and stores the parsed token under the "user" context key.
func JWTMiddleware(secret string, skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		Skipper:    skipper,
		SigningKey: []byte(secret),
		ContextKey: contextKey,
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return &Claims{}
		},
	})
}

// CallerFromContext extracts the validated caller identity set by
// JWTMiddleware.
func CallerFromContext(c echo.Context) (Caller, error) {
	token, ok := c.Get(contextKey).(*jwt.Token)
	if !ok || token == nil {
		return Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "malformed claims")
	}
	if claims.Subject == "" {
		return Caller{}, errors.New("token has no subject")
	}
	return Caller{UserID: claims.Subject, Role: claims.Role}, nil
}
