package llm

import "time"

// Message is one entry of the list sent to a provider. The orchestrator
// instructs the model to answer with a single structured JSON object, so
// message content is always plain text here; tool traffic rides inside it.
type Message struct {
	Role      string `json:"role"` // "system", "user", "assistant"
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// StreamChunk is one increment of a provider's streaming response.
type StreamChunk struct {
	// Content is the text delta carried by this chunk.
	Content string `json:"content,omitempty"`

	// Error is a stream-level failure message shown on the event stream.
	Error string `json:"error,omitempty"`
	// RawError keeps the underlying error for transience classification.
	RawError error `json:"-"`

	// IsFinal marks the terminal chunk of a successful stream.
	IsFinal      bool   `json:"is_final"`
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage is populated on the final chunk when the provider reports it.
	Usage *Usage `json:"usage,omitempty"`
}

// NewSystemMessage builds a system message.
func NewSystemMessage(text string) Message {
	return Message{Role: "system", Content: text, Timestamp: time.Now().Unix()}
}

// NewUserMessage builds a user message.
func NewUserMessage(text string) Message {
	return Message{Role: "user", Content: text, Timestamp: time.Now().Unix()}
}

// NewAssistantMessage builds an assistant message.
func NewAssistantMessage(text string) Message {
	return Message{Role: "assistant", Content: text, Timestamp: time.Now().Unix()}
}

// NewTextChunk builds a content delta chunk.
func NewTextChunk(text string) StreamChunk {
	return StreamChunk{Content: text}
}

// NewErrorChunk builds a stream-level error chunk.
func NewErrorChunk(msg string, raw error) StreamChunk {
	return StreamChunk{Error: msg, RawError: raw}
}

// NewFinalChunk builds the terminal chunk with usage statistics.
func NewFinalChunk(reason string, usage *Usage) StreamChunk {
	return StreamChunk{IsFinal: true, FinishReason: reason, Usage: usage}
}
