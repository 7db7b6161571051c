package api

// Stream event type tags. Every outbound artifact of a turn is one of these.
const (
	EventTextDelta = "text_delta"
	EventWidget    = "widget"
	EventStatus    = "status"
	EventDone      = "done"
	EventError     = "error"
)

// Error codes surfaced on the event stream.
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeLLMUnavailable = "LLM_UNAVAILABLE"
	ErrCodeLLMError       = "LLM_ERROR"
	ErrCodeAgentError     = "AGENT_ERROR"
)

// StreamEvent is the tagged union carried on the outbound event stream.
// Exactly one payload group is populated depending on Type.
type StreamEvent struct {
	Type string `json:"type"`

	// text_delta
	Content string `json:"content,omitempty"`

	// widget
	Widget *WidgetBlock `json:"widget,omitempty"`

	// status
	Status string `json:"status,omitempty"`

	// error
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// EventSink is the ordered, single-producer sink for StreamEvents.
// Implementations own the wire; the orchestrator is the only writer.
//
// After a done or error event has been emitted (or the wire has failed),
// the sink is closed and further Emit calls are silent no-ops.
type EventSink interface {
	Emit(event StreamEvent)
	Closed() bool
}

// Event constructors. Channels and the engine build events through these
// so the tag and payload always agree.

func TextDeltaEvent(content string) StreamEvent {
	return StreamEvent{Type: EventTextDelta, Content: content}
}

func WidgetEvent(w *WidgetBlock) StreamEvent {
	return StreamEvent{Type: EventWidget, Widget: w}
}

func StatusEvent(status string) StreamEvent {
	return StreamEvent{Type: EventStatus, Status: status}
}

func DoneEvent() StreamEvent {
	return StreamEvent{Type: EventDone}
}

func ErrorEvent(code, message string) StreamEvent {
	return StreamEvent{Type: EventError, Code: code, Message: message}
}
