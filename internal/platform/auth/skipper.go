package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// publicPaths lists URL paths that bypass authentication: infrastructure
// endpoints and the endpoints that hand out credentials.
var publicPaths = map[string]bool{
	"/health":               true,
	"/health/db":            true,
	"/metrics":              true,
	"/api/v1/auth/register": true,
	"/api/v1/auth/token":    true,
}

// ServicesPrefix is the mount point of the service facade. Facade requests may
// authenticate with a bearer token or with credentials in the request body.
const ServicesPrefix = "/services/"

// AuthSkipper returns true for requests whose path should skip authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given path bypasses authentication.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}

// OptionalAuth reports whether a request may proceed without a bearer token.
func OptionalAuth(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, ServicesPrefix)
}
