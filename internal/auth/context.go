package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxEmail
	ctxIsAdmin
)

func WithIdentity(ctx context.Context, userID, email string, isAdmin bool) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxEmail, email)
	ctx = context.WithValue(ctx, ctxIsAdmin, isAdmin)
	return ctx
}

func UserID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxUserID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("user_id not in context")
}

func Email(ctx context.Context) (string, error) {
	v := ctx.Value(ctxEmail)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("email not in context")
}

// IsAdmin reports whether the caller carries the admin flag.
// Absence of the value means false, never an implicit grant.
func IsAdmin(ctx context.Context) bool {
	v := ctx.Value(ctxIsAdmin)
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
