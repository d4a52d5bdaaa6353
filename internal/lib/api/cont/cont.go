package cont

import (
	"context"

	"QuoteChat/entity"
)

type ctxKey string

const userKey ctxKey = "user"

func PutUser(ctx context.Context, user *entity.Actor) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser returns the authenticated actor or nil.
func GetUser(ctx context.Context) *entity.Actor {
	user, ok := ctx.Value(userKey).(*entity.Actor)
	if !ok {
		return nil
	}
	return user
}
