package api

import "context"

// Channel defines the standardized lifecycle interface for inbound
// transports (web, telegram, ...).
type Channel interface {
	ID() string
	Start(ctx ChannelContext) error
	Stop() error
}

// ChannelContext is how a running Channel hands requests to the gateway
// core. The channel owns the sink's wire; the gateway owns dispatch.
type ChannelContext interface {
	// Dispatch routes one chat request to the agent engine. It returns
	// once processing has been scheduled; completion is signalled on the
	// sink itself.
	Dispatch(ctx context.Context, channelID string, req *ChatRequest, sink EventSink)
}

// EngineProvider exposes the engine to channels that need health data
// (the web channel's /health endpoint).
type EngineProvider interface {
	Engine() AgentEngine
}
