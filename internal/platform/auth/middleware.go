package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

type JWTConfig struct {
	Issuer     string
	SigningKey []byte
	// Skipper bypasses authentication entirely.
	Skipper func(echo.Context) bool
	// Optional lets requests without an Authorization header through with no
	// identity. A header that is present must still be valid.
	Optional func(echo.Context) bool
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)
	keyFunc := func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				if cfg.Optional != nil && cfg.Optional(c) {
					return next(c)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(parts[1], claims, keyFunc)
			if err != nil || !token.Valid || claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := WithIdentity(c.Request().Context(), Identity(claims.Subject), claims.Roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// DevAuthHeader selects the caller login in development mode.
const DevAuthHeader = "X-Dev-Login"

// DevAuthMiddleware is a permissive middleware for development. The caller is
// taken from the X-Dev-Login header, falling back to defaultLogin with the
// admin role. Requests that carry a bearer token are passed to fallback.
func DevAuthMiddleware(defaultLogin string, fallback echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withToken := next
		if fallback != nil {
			withToken = fallback(next)
		}
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") != "" {
				return withToken(c)
			}

			login, roles := defaultLogin, []string{RoleAdmin}
			if h := c.Request().Header.Get(DevAuthHeader); h != "" {
				login, roles = h, nil
			}
			ctx := WithIdentity(c.Request().Context(), Identity(login), roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
