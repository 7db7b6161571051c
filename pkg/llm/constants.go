package llm

// StopReason constants define normalized reasons for LLM generation
// termination. All providers map their native stop reasons to these.
const (
	StopReasonStop   = "stop"   // Normal completion
	StopReasonLength = "length" // Output truncated due to token limit
)
