package auth

import (
	"strings"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	apperrors "taskhub/internal/errors"
)

const contextKey = "user"

// Middleware authenticates the bearer token through the JWT service. The token
// may also be sent as ?token= for EventSource clients, which cannot set headers.
func Middleware(jwtService *JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  contextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ,query:token",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return jwtService.ValidateAccessToken(strings.TrimSpace(token))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apperrors.ErrUnauthenticated
		},
	})
}

// ClaimsFrom returns the authenticated claims stored by Middleware.
func ClaimsFrom(c echo.Context) (*Claims, error) {
	claims, ok := c.Get(contextKey).(*Claims)
	if !ok || claims == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	return claims, nil
}

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uuid.UUID, error) {
	claims, err := ClaimsFrom(c)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID, nil
}
