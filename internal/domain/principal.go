package domain

import "context"

type principalKey struct{}

// WithUser attaches the authenticated principal of one request to ctx.
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, principalKey{}, &user)
}

// UserFrom returns the principal attached by WithUser. A nil user means the
// request is anonymous.
func UserFrom(ctx context.Context) *User {
	user, ok := ctx.Value(principalKey{}).(*User)
	if !ok {
		return nil
	}
	u := *user
	return &u
}
