package session

import (
	"context"
	"strings"
)

// Handle carries the downstream API credentials for exactly one request.
// It is threaded through tool invocations via the context rather than
// installed on shared provider objects, so concurrent requests with
// different sessions never race.
type Handle struct {
	Token     string
	BaseURL   string
	ClusterID string
}

type ctxKey struct{}

// NewContext returns a child context carrying the session handle.
func NewContext(ctx context.Context, h *Handle) context.Context {
	if h == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, h)
}

// FromContext extracts the session handle, if one was lent to this call.
func FromContext(ctx context.Context) (*Handle, bool) {
	h, ok := ctx.Value(ctxKey{}).(*Handle)
	return h, ok && h != nil
}

// JoinURL concatenates a base URL and an endpoint path, stripping trailing
// slashes on the base and ensuring a single leading slash on the path.
func JoinURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
