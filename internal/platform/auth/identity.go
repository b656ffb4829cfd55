package auth

import "context"

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
)

const RoleAdmin = "admin"

// Identity is the login name of the caller. It is threaded unchanged from the
// transport into every manager call.
type Identity string

// WithIdentity returns a context carrying the caller's login and roles.
func WithIdentity(ctx context.Context, id Identity, roles []string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, string(id))
	return context.WithValue(ctx, UserRolesKey, roles)
}

func IdentityFromContext(ctx context.Context) Identity {
	uid, _ := ctx.Value(UserIDKey).(string)
	return Identity(uid)
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}
