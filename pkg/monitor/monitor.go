package monitor

import (
	"context"
	"time"
)

// MonitorMessage is one observed exchange on any channel.
type MonitorMessage struct {
	Timestamp   time.Time
	MessageType string // "USER" or "ASSISTANT"
	ChannelID   string
	Username    string
	Content     string
}

// Monitor observes message traffic across all channels.
type Monitor interface {
	Start() error
	Stop() error

	// OnMessage receives and displays a monitoring message.
	OnMessage(msg MonitorMessage)
}

type requestIDKey struct{}

// WithRequestID attaches a per-request id to the context. The slog handler
// prints it on every line so one turn's logs group together.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID extracts the per-request id, if any.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
