package audit

import "context"

// clientIPKey is an unexported context key for passing client IP through internal layers.
//
// The HTTP layer resolves the real client IP and attaches it with WithClientIP;
// Service reads it when an event carries no explicit IP.
type clientIPKey struct{}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIPFromContext(ctx context.Context) string {
	v := ctx.Value(clientIPKey{})
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
