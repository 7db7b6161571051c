package api

import jsoniter "github.com/json-iterator/go"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Predefined widget types. "custom" carries a VDOM tree instead of a
// typed data schema.
const (
	WidgetEmailPreview  = "email_preview"
	WidgetCalendarEvent = "calendar_event"
	WidgetSearchResults = "search_results"
	WidgetForm          = "form"
	WidgetMeetingCard   = "meeting_card"
	WidgetFlightCard    = "flight_card"
	WidgetCustom        = "custom"
)

// WidgetBlock is a typed UI descriptor rendered by the client.
type WidgetBlock struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Data    map[string]any `json:"data,omitempty"`
	Actions []string       `json:"actions,omitempty"`
	VDOM    *VDOMNode      `json:"vdom,omitempty"`
}

// VDOMNode is one node of a custom widget tree. Children are either
// nested nodes or bare strings.
type VDOMNode struct {
	Component string         `json:"component"`
	Props     map[string]any `json:"props,omitempty"`
	Children  []VDOMChild    `json:"children,omitempty"`
}

// VDOMChild holds exactly one of Node or Text.
type VDOMChild struct {
	Node *VDOMNode
	Text string
}

// MarshalJSON renders a child as either a nested object or a plain string.
func (c VDOMChild) MarshalJSON() ([]byte, error) {
	if c.Node != nil {
		return json.Marshal(c.Node)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts both object and string children.
func (c *VDOMChild) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &c.Text)
	}
	var node VDOMNode
	if err := json.Unmarshal(data, &node); err != nil {
		return err
	}
	c.Node = &node
	return nil
}

// WidgetDescriptor is the pre-validation widget shape the LLM emits in
// its structured response. The widget generator turns it into a
// WidgetBlock or rejects it.
type WidgetDescriptor struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
	VDOM *VDOMNode      `json:"vdom,omitempty"`
}
