package api

// Role constants for conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatRequest is the standardized inbound request shape shared by all
// channels. The last turn must carry RoleUser; the engine rejects
// anything else with a VALIDATION_ERROR.
type ChatRequest struct {
	// Messages is the ordered turn sequence supplied by the client.
	Messages []Turn `json:"messages"`
	// ConversationID selects the server-side conversation. Channels mint
	// one when the client omits it.
	ConversationID string `json:"conversationId,omitempty"`
	// SessionInfo carries downstream API credentials for this request only.
	SessionInfo *SessionInfo `json:"sessionInfo,omitempty"`
}

// Turn is a single message in the conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// WidgetAction is set when the turn originates from a widget
	// interaction rather than typed text.
	WidgetAction *WidgetAction `json:"widgetAction,omitempty"`
}

// WidgetAction describes a client-side interaction with a previously
// emitted widget.
type WidgetAction struct {
	WidgetID string         `json:"widgetId"`
	Action   string         `json:"action"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// SessionInfo is the opaque session handle as it appears on the wire.
type SessionInfo struct {
	// Session is the downstream API token.
	Session string `json:"session"`
	// BaseURL is the per-cluster base URL for the mail APIs.
	BaseURL string `json:"baseUrl,omitempty"`
	// ClusterID identifies the user's home cluster.
	ClusterID string `json:"clusterId,omitempty"`
}

// LastUserTurn returns the final turn if it is a user turn.
func (r *ChatRequest) LastUserTurn() (Turn, bool) {
	if len(r.Messages) == 0 {
		return Turn{}, false
	}
	last := r.Messages[len(r.Messages)-1]
	if last.Role != RoleUser {
		return Turn{}, false
	}
	return last, true
}
