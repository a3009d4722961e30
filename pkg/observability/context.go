package observability

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	correlationIDCtxKey contextKey = "correlation_id"
	userIDCtxKey        contextKey = "user_id"
)

// Attribute keys shared by logs and metrics.
const (
	CorrelationIDKey = "correlation_id"
	UserIDKey        = "user_id"
)

// WithCorrelationID adds a correlation ID to the context, generating one
// when id is empty.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, correlationIDCtxKey, id)
}

// CorrelationIDFromContext extracts the correlation ID from context.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDCtxKey).(string)
	return id
}

// WithUserID adds a user ID to the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

// UserIDFromContext extracts the user ID from context.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(userIDCtxKey).(string)
	return id
}
