package auth

import (
	"context"
	"errors"
)

type contextKey string

const userKey contextKey = "user"

var ErrNoUser = errors.New("user not found in context")

// Identity is the signed-in user as carried by a session.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

func WithUser(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, userKey, id)
}

// CurrentUser returns the identity attached by the session middleware.
func CurrentUser(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(userKey).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, ErrNoUser
	}
	return id, nil
}

// CurrentID returns the signed-in user id, or "" when there is none.
func CurrentID(ctx context.Context) string {
	id, _ := CurrentUser(ctx)
	return id.UserID
}
