package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"concierge/pkg/api"

	jsoniter "github.com/json-iterator/go"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Executor validates and dispatches tool calls. One call failing never
// affects its siblings; errors come back inside the ToolResult.
type Executor struct {
	registry api.ToolRegistry

	schemaMu sync.Mutex
	schemas  map[string]*jsonschema.Schema
}

func NewExecutor(registry api.ToolRegistry) *Executor {
	return &Executor{
		registry: registry,
		schemas:  make(map[string]*jsonschema.Schema),
	}
}

// Execute runs a single call: lookup, argument validation, handler
// dispatch. Handler panics are converted into failed results.
func (e *Executor) Execute(ctx context.Context, call api.ToolCall) (result api.ToolResult) {
	tool, ok := e.registry.ByName(call.Name)
	if !ok {
		return api.ErrorResult(fmt.Sprintf(
			"Unknown tool: %s; available: %s",
			call.Name, strings.Join(e.registry.AllNames(), ", ")))
	}

	if err := e.validate(tool.Descriptor, call.Arguments); err != nil {
		return api.ErrorResult(fmt.Sprintf("invalid arguments for %s: %v", call.Name, err))
	}

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "tool handler panicked", "tool", call.Name, "panic", r)
			result = api.ErrorResult(fmt.Sprintf("tool %s failed: internal error", call.Name))
		}
	}()

	return tool.Handler(ctx, call.Arguments)
}

// ExecuteMany fans all calls out concurrently and joins, preserving the
// id→result mapping regardless of completion order.
func (e *Executor) ExecuteMany(ctx context.Context, calls []api.ToolCall) map[string]api.ToolResult {
	results := make(map[string]api.ToolResult, len(calls))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, call := range calls {
		wg.Add(1)
		go func(c api.ToolCall) {
			defer wg.Done()
			res := e.Execute(ctx, c)
			mu.Lock()
			results[c.ID] = res
			mu.Unlock()
		}(call)
	}

	wg.Wait()
	return results
}

// ExecuteSequential runs the calls one at a time, for handlers with
// ordering constraints.
func (e *Executor) ExecuteSequential(ctx context.Context, calls []api.ToolCall) map[string]api.ToolResult {
	results := make(map[string]api.ToolResult, len(calls))
	for _, call := range calls {
		results[call.ID] = e.Execute(ctx, call)
	}
	return results
}

// validate checks the arguments against a JSON schema compiled from the
// descriptor: required presence plus shallow type match.
func (e *Executor) validate(desc api.ToolDescriptor, args map[string]any) error {
	if len(desc.Parameters) == 0 && len(desc.Required) == 0 {
		return nil
	}

	schema, err := e.schemaFor(desc)
	if err != nil {
		slog.Warn("tool schema compile failed, skipping validation", "tool", desc.Name, "error", err)
		return nil
	}

	if args == nil {
		args = map[string]any{}
	}
	// Round-trip through JSON so numeric types match what the schema
	// library expects from decoded documents.
	encoded, err := json.Marshal(args)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}

// schemaFor compiles and caches a schema per tool name.
func (e *Executor) schemaFor(desc api.ToolDescriptor) (*jsonschema.Schema, error) {
	e.schemaMu.Lock()
	defer e.schemaMu.Unlock()

	if s, ok := e.schemas[desc.Name]; ok {
		return s, nil
	}

	raw, err := json.MarshalToString(buildSchemaDoc(desc))
	if err != nil {
		return nil, err
	}
	schema, err := jsonschema.CompileString("tool://"+desc.Name, raw)
	if err != nil {
		return nil, err
	}
	e.schemas[desc.Name] = schema
	return schema, nil
}

func buildSchemaDoc(desc api.ToolDescriptor) map[string]any {
	properties := make(map[string]any, len(desc.Parameters))
	for name, p := range desc.Parameters {
		properties[name] = paramSchema(p)
	}

	doc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(desc.Required) > 0 {
		doc["required"] = desc.Required
	}
	return doc
}

func paramSchema(p api.ParamSpec) map[string]any {
	s := map[string]any{}
	if p.Type != "" {
		s["type"] = p.Type
	}
	if len(p.Enum) > 0 {
		s["enum"] = p.Enum
	}
	if p.Items != nil {
		s["items"] = paramSchema(*p.Items)
	}
	return s
}
