// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them. Keeping the package free of
// net/http lets the cycle service capture audit metadata (client IP, user agent,
// request ID) without importing transport code.
//
// Usage in services:
//
//	subjectID := requestcontext.SubjectID(ctx)
//	ip := requestcontext.ClientIP(ctx)
//
// Usage in tests:
//
//	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.7", "curl/8.0")
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "revalidation/pkg/domain"
)

type (
	subjectIDKey   struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeySubjectID   = subjectIDKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyUserAgent   = userAgentKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// SubjectID retrieves the authenticated subject from the context.
// Returns the zero value (nil UUID) if not set.
func SubjectID(ctx context.Context) id.SubjectID {
	if subjectID, ok := ctx.Value(ContextKeySubjectID).(id.SubjectID); ok {
		return subjectID
	}
	return id.SubjectID{}
}

// WithSubjectID injects a subject ID into the context.
func WithSubjectID(ctx context.Context, subjectID id.SubjectID) context.Context {
	return context.WithValue(ctx, ContextKeySubjectID, subjectID)
}

// ClientIP retrieves the originating network address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the client identifier string from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	return ctx
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() outside HTTP requests (cron sweeps, CLI).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
