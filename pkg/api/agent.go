package api

import "context"

// AgentEngine is the core reasoning loop. Process drives one full turn:
// it validates the request, talks to the LLM, dispatches tools, and emits
// exactly one terminal event (done or error) on the sink.
type AgentEngine interface {
	Process(ctx context.Context, req *ChatRequest, sink EventSink)

	// Ping reports whether the underlying LLM is reachable.
	Ping(ctx context.Context) error

	// ToolNames lists the registered tools, for health reporting.
	ToolNames() []string
}
