package server

import "context"

// Principal is the authenticated caller as the edge resolved it. The
// services layer never sees this type; handlers translate it into a
// types.UserInfo together with the platform policy flags.
type Principal struct {
	ID                 int64
	Groups             []int64
	RoleSlug           string
	Certified          bool
	AcceptedTermsOfUse bool
}

type principalContextKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

func currentPrincipal(ctx context.Context) (Principal, bool) {
	v := ctx.Value(principalContextKey{})
	if v == nil {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
