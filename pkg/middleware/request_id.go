package middleware

import "context"

type contextKey string

const RequestIDKey contextKey = "request_id"

// RequestIDFrom returns the id assigned by RequestLogging, or "" outside a request.
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
