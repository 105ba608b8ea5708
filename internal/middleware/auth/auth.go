// Package auth extracts the request identity from a bearer token. The token is
// looked up in the Authorization header first, then in the token/access_token
// cookies, then in the token/access_token query parameters.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const identityKey = "identity"

const tokenTTL = 7 * 24 * time.Hour

// SignToken issues the bearer token embedding the user id and role.
func SignToken(secret []byte, id uint, role string) (string, error) {
	claims := jwt.MapClaims{
		"id":   id,
		"role": role,
		"exp":  time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

type Identity struct {
	ID   uint
	Role string
}

// FromContext returns the identity attached by Optional or Required, if any.
func FromContext(c echo.Context) (*Identity, bool) {
	id, ok := c.Get(identityKey).(*Identity)
	return id, ok && id != nil
}

// Optional attaches the identity when a valid token is present and lets the
// request through anonymously otherwise. Used by the anonymous-friendly
// product endpoints.
func Optional(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := extractToken(c); raw != "" {
				if id, err := parseToken(raw, secret); err == nil {
					c.Set(identityKey, id)
				}
			}
			return next(c)
		}
	}
}

// Required rejects with 401 unless a valid token is present.
func Required(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := extractToken(c)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}
			id, err := parseToken(raw, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}
			c.Set(identityKey, id)
			return next(c)
		}
	}
}

// RequireRoles authenticates and then rejects with 403 unless the identity's
// role is one of the given roles.
func RequireRoles(secret []byte, roles ...string) echo.MiddlewareFunc {
	required := Required(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return required(func(c echo.Context) error {
			id, _ := FromContext(c)
			for _, role := range roles {
				if id != nil && id.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
		})
	}
}

func extractToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}

	for _, name := range []string{"token", "access_token"} {
		if cookie, err := c.Cookie(name); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}

	for _, name := range []string{"token", "access_token"} {
		if v := c.QueryParam(name); v != "" {
			return v
		}
	}

	return ""
}

func parseToken(raw string, secret []byte) (*Identity, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("cannot parse claims")
	}

	idVal, ok := claims["id"].(float64)
	if !ok {
		return nil, fmt.Errorf("token missing id claim")
	}
	role, _ := claims["role"].(string)

	return &Identity{ID: uint(idVal), Role: role}, nil
}
