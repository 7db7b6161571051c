package api

import "context"

// Tool domains gate prompt fragments and tool visibility.
const (
	DomainEmail    = "email"
	DomainCalendar = "calendar"
	DomainGeneral  = "general"
)

// Action kinds classify how a tool takes effect. Metadata only; the
// executor treats all kinds identically.
const (
	ActionKindAPI       = "api"
	ActionKindClient    = "client"
	ActionKindComposite = "composite"
	ActionKindInternal  = "internal"
)

// Tool output shapes, used in prompt usage hints.
const (
	OutputText   = "text"
	OutputWidget = "widget"
	OutputBoth   = "both"
)

// ToolCall is a structured request from the LLM to invoke a named tool.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult is the outcome of one tool call. Success=false implies Error
// is set and Data is absent.
type ToolResult struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Error   string        `json:"error,omitempty"`
	Widgets []WidgetBlock `json:"widgets,omitempty"`
}

// ErrorResult builds a failed ToolResult.
func ErrorResult(msg string) ToolResult {
	return ToolResult{Success: false, Error: msg}
}

// ParamSpec describes a single tool parameter for both schema validation
// and prompt rendering.
type ParamSpec struct {
	Type        string     `json:"type"`
	Description string     `json:"description,omitempty"`
	Enum        []string   `json:"enum,omitempty"`
	Items       *ParamSpec `json:"items,omitempty"`
	Default     any        `json:"default,omitempty"`
}

// UsageHints feed the prompt's tools block. They never affect dispatch.
type UsageHints struct {
	WhenToUse     string   `json:"whenToUse,omitempty"`
	WhenNotToUse  string   `json:"whenNotToUse,omitempty"`
	Prerequisites []string `json:"prerequisites,omitempty"`
	Output        string   `json:"output,omitempty"`
}

// ToolDescriptor is the static metadata of a registered tool.
type ToolDescriptor struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  map[string]ParamSpec `json:"parameters,omitempty"`
	Required    []string             `json:"required,omitempty"`
	// Domain tags the tool for intent-filtered views. Empty means the
	// tool is offered in every domain (back-compat).
	Domain string     `json:"domain,omitempty"`
	Kind   string     `json:"kind,omitempty"`
	Hints  UsageHints `json:"hints,omitempty"`
}

// ToolHandler executes one call. The session handle, when present, travels
// in ctx (see pkg/session); handlers must not retain it.
type ToolHandler func(ctx context.Context, args map[string]any) ToolResult

// Tool pairs a descriptor with its handler.
type Tool struct {
	Descriptor ToolDescriptor
	Handler    ToolHandler
}

// ToolRegistry is the name→tool inventory with domain-filtered views.
type ToolRegistry interface {
	Register(tool Tool)
	Unregister(name string)
	ByName(name string) (Tool, bool)
	ByDomain(domains []string) []Tool
	AllNames() []string
	AllDescriptors() []ToolDescriptor
}
