// Package agent contains the reason-and-act orchestrator: prompt
// assembly, the bounded LLM↔tool loop, and event emission.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"concierge/pkg/api"
	"concierge/pkg/config"
	"concierge/pkg/conversation"
	"concierge/pkg/llm"
	"concierge/pkg/parser"
	"concierge/pkg/prompt"
	"concierge/pkg/session"
	"concierge/pkg/tools"
	"concierge/pkg/widgets"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	statusThinking   = "Thinking..."
	statusProcessing = "Processing tool results..."

	capApology = "I wasn't able to finish working through that request. Could you try rephrasing it, or break it into smaller steps?"

	emptyResultApology = "I've completed the search but couldn't find any matching results. Please let me know if you'd like to try different search terms."
)

// Engine drives one turn per Process call. All collaborators are
// injected at startup and read-only afterwards; per-turn state lives on
// the stack of Process.
type Engine struct {
	llm           llm.LLMClient
	registry      api.ToolRegistry
	executor      *tools.Executor
	router        *prompt.Router
	contextBuild  *prompt.ContextBuilder
	conversations *conversation.Store
	generator     *widgets.Generator
	sys           *config.SystemConfig
}

// Options are the optional engine collaborators.
type Options struct {
	ContextBuilder *prompt.ContextBuilder
}

func NewEngine(client llm.LLMClient, registry api.ToolRegistry, store *conversation.Store, sys *config.SystemConfig, opts Options) *Engine {
	return &Engine{
		llm:           client,
		registry:      registry,
		executor:      tools.NewExecutor(registry),
		router:        prompt.NewRouter(),
		contextBuild:  opts.ContextBuilder,
		conversations: store,
		generator:     widgets.NewGenerator(),
		sys:           sys,
	}
}

// Ping reports LLM reachability for the health endpoint.
func (e *Engine) Ping(ctx context.Context) error {
	return e.llm.Ping(ctx)
}

// ToolNames lists the registered tools for the health endpoint.
func (e *Engine) ToolNames() []string {
	return e.registry.AllNames()
}

// Process runs one full turn. It emits exactly one terminal event (done
// or error) on the sink and never returns an error to the caller; every
// failure mode surfaces on the stream.
func (e *Engine) Process(ctx context.Context, req *api.ChatRequest, sink api.EventSink) {
	userTurn, ok := req.LastUserTurn()
	if !ok {
		sink.Emit(api.ErrorEvent(api.ErrCodeValidation, "last message must be a user message"))
		return
	}

	if req.SessionInfo != nil && req.SessionInfo.Session != "" {
		ctx = session.NewContext(ctx, &session.Handle{
			Token:     req.SessionInfo.Session,
			BaseURL:   req.SessionInfo.BaseURL,
			ClusterID: req.SessionInfo.ClusterID,
		})
	} else {
		slog.WarnContext(ctx, "request has no session handle, API tools will fail closed")
	}

	if err := e.llm.Ping(ctx); err != nil {
		slog.ErrorContext(ctx, "LLM unreachable", "error", err)
		sink.Emit(api.ErrorEvent(api.ErrCodeLLMUnavailable, "the language model is currently unavailable"))
		return
	}

	convID := req.ConversationID
	if convID == "" {
		convID = "default"
	}

	query := userTurn.Content
	if query == "" && userTurn.WidgetAction != nil {
		query = describeWidgetAction(userTurn.WidgetAction)
	}

	// History is captured before the current turn is recorded so the
	// context window holds prior turns only.
	var history []conversation.Entry
	if IncludeHistory(query) {
		history = e.conversations.Recent(convID, e.sys.ContextWindowEntries)
	}
	e.conversations.Append(convID, conversation.NewEntry(api.RoleUser, query))

	summaryRequest := IsSummaryRequest(query)

	var userContext string
	if e.contextBuild != nil {
		userContext = e.contextBuild.Build(ctx)
	}

	var descriptors []api.ToolDescriptor
	if e.sys.EnableTools {
		domains := e.router.DetectDomains(query)
		descriptors = e.router.RelevantTools(e.registry.AllDescriptors(), domains)
	}

	systemPrompt := e.router.Assemble(query, descriptors, userContext)

	messages := []llm.Message{llm.NewSystemMessage(systemPrompt)}
	for _, entry := range history {
		messages = append(messages, llm.Message{Role: entry.Role, Content: entry.Content})
	}
	messages = append(messages, llm.NewUserMessage(query))

	for iter := 0; iter < e.sys.MaxIterations; iter++ {
		status := statusThinking
		if iter > 0 {
			status = statusProcessing
		}
		sink.Emit(api.StatusEvent(status))

		raw, err := e.collectStream(ctx, messages)
		if err != nil {
			slog.ErrorContext(ctx, "LLM stream failed", "iteration", iter, "error", err)
			sink.Emit(api.ErrorEvent(api.ErrCodeLLMError, "the language model returned an error"))
			return
		}

		parsed := parser.Parse(raw)

		if len(parsed.ToolCalls) == 0 {
			e.finalize(ctx, sink, convID, parsed, iter)
			return
		}

		names := make([]string, len(parsed.ToolCalls))
		for i, c := range parsed.ToolCalls {
			names[i] = c.Name
		}
		slog.InfoContext(ctx, "dispatching tool calls", "iteration", iter, "tools", strings.Join(names, ","))

		results := e.executor.ExecuteMany(ctx, parsed.ToolCalls)

		// Widget emission follows the LLM's call order, not completion
		// order. A summary request suppresses tool-result widgets only;
		// widgets the LLM authors directly still go out in finalize.
		if !summaryRequest {
			order := make([]string, len(parsed.ToolCalls))
			for i, c := range parsed.ToolCalls {
				order[i] = c.ID
			}
			for _, w := range e.generator.FromToolResults(results, order) {
				block := w
				sink.Emit(api.WidgetEvent(&block))
			}
		}

		messages = append(messages,
			llm.NewAssistantMessage(raw),
			llm.NewUserMessage(renderToolResults(parsed.ToolCalls, results)))
	}

	// Iteration cap reached: apologize in text, never as an error.
	slog.WarnContext(ctx, "iteration cap reached", "max", e.sys.MaxIterations)
	e.streamText(ctx, sink, capApology)
	e.conversations.Append(convID, conversation.NewEntry(api.RoleAssistant, capApology))
	sink.Emit(api.DoneEvent())
}

// finalize handles the no-tool-calls exit: stream the reply word by word,
// emit LLM-authored widgets, record the turn, and close with done.
func (e *Engine) finalize(ctx context.Context, sink api.EventSink, convID string, parsed *parser.ParsedResponse, iter int) {
	responseText := parsed.Response
	if responseText == "" && iter > 0 {
		responseText = emptyResultApology
	}
	if responseText == "" {
		responseText = parser.DefaultResponse
	}

	e.streamText(ctx, sink, responseText)

	if len(parsed.Widgets) > 0 {
		blocks, errs := e.generator.FromLLM(parsed.Widgets)
		for _, err := range errs {
			slog.WarnContext(ctx, "dropping invalid LLM widget", "error", err)
		}
		for _, w := range blocks {
			block := w
			sink.Emit(api.WidgetEvent(&block))
		}
	}

	e.conversations.Append(convID, conversation.NewEntry(api.RoleAssistant, responseText))
	sink.Emit(api.DoneEvent())
}

// collectStream invokes the LLM once and accumulates the chunk contents.
// The per-call timeout comes from system config.
func (e *Engine) collectStream(ctx context.Context, messages []llm.Message) (string, error) {
	timeout := time.Duration(e.sys.LLMTimeoutMs) * time.Millisecond
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stream, err := e.llm.StreamChat(callCtx, messages)
	if err != nil {
		return "", err
	}

	var raw strings.Builder
	for chunk := range stream {
		if chunk.Error != "" {
			if chunk.RawError != nil {
				return "", chunk.RawError
			}
			return "", fmt.Errorf("%s", chunk.Error)
		}
		raw.WriteString(chunk.Content)
		if chunk.IsFinal {
			break
		}
	}

	if err := callCtx.Err(); err != nil && raw.Len() == 0 {
		return "", err
	}
	return raw.String(), nil
}

// streamText emits the reply word by word, preserving whitespace, with
// an optional inter-word delay to shape client animation.
func (e *Engine) streamText(ctx context.Context, sink api.EventSink, text string) {
	delay := time.Duration(e.sys.WordDelayMs) * time.Millisecond

	for _, token := range SplitWords(text) {
		if sink.Closed() {
			return
		}
		sink.Emit(api.TextDeltaEvent(token))
		if delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}
}

// SplitWords cuts text into word tokens that keep their trailing
// whitespace, so concatenating the tokens reproduces the input exactly.
func SplitWords(text string) []string {
	var tokens []string
	start := 0
	inSpace := false

	for i, r := range text {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if inSpace && !isSpace {
			tokens = append(tokens, text[start:i])
			start = i
		}
		inSpace = isSpace
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

// renderToolResults builds the synthesized user turn that feeds tool
// output back to the LLM, one block per call in dispatch order.
func renderToolResults(calls []api.ToolCall, results map[string]api.ToolResult) string {
	var b strings.Builder
	for _, call := range calls {
		res := results[call.ID]
		if res.Success {
			pretty, err := json.MarshalIndent(res.Data, "", "  ")
			if err != nil {
				pretty = []byte(fmt.Sprintf("%v", res.Data))
			}
			fmt.Fprintf(&b, "Tool %q returned: %s\n", call.Name, pretty)
		} else {
			fmt.Fprintf(&b, "Tool %q failed: %s\n", call.Name, res.Error)
		}
	}
	b.WriteString("\nNow write the user-facing reply based on these results. If no results were found, tell the user clearly.")
	return b.String()
}

func describeWidgetAction(wa *api.WidgetAction) string {
	return fmt.Sprintf("The user clicked %q on widget %s.", wa.Action, wa.WidgetID)
}
