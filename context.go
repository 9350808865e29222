package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

type roleContextKey struct{}

// WithRole makes requests sent through the Transport with ctx use role's
// session instead of the Active Session. With dual sessions disabled only the
// active role is available.
func WithRole(ctx context.Context, role session.Role) context.Context {
	return context.WithValue(ctx, roleContextKey{}, role)
}

func roleFromContext(ctx context.Context) session.Role {
	if ctx == nil {
		return ""
	}
	role, _ := ctx.Value(roleContextKey{}).(session.Role)
	return role
}
