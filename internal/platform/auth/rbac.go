package auth

import (
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/caremgr/caremgr/internal/platform/apperr"
)

// HasRole reports whether roles contains role. Admins hold every role.
func HasRole(roles []string, role string) bool {
	return slices.Contains(roles, role) || slices.Contains(roles, RoleAdmin)
}

// RequireRole gates a route on the transport roles of the caller. Ownership
// of individual records is still decided by the managers.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if IdentityFromContext(ctx) == "" {
				return apperr.Unauthenticatedf("auth.RequireRole", "no caller identity")
			}
			have := RolesFromContext(ctx)
			if slices.ContainsFunc(roles, func(r string) bool { return HasRole(have, r) }) {
				return next(c)
			}
			return apperr.Forbiddenf("auth.RequireRole", "requires role %s", strings.Join(roles, " or "))
		}
	}
}
