package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"concierge/pkg/api"
	"concierge/pkg/config"
	"concierge/pkg/conversation"
	"concierge/pkg/llm"
	"concierge/pkg/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM plays back canned responses, one per StreamChat invocation,
// repeating the last one when the script runs out.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	calls     [][]llm.Message
	pingErr   error
	streamErr error
}

func (s *scriptedLLM) StreamChat(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	s.mu.Lock()
	s.calls = append(s.calls, messages)
	idx := len(s.calls) - 1
	s.mu.Unlock()

	ch := make(chan llm.StreamChunk, 3)
	if s.streamErr != nil {
		ch <- llm.NewErrorChunk(s.streamErr.Error(), s.streamErr)
		close(ch)
		return ch, nil
	}

	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	ch <- llm.NewTextChunk(s.responses[idx])
	ch <- llm.NewFinalChunk(llm.StopReasonStop, nil)
	close(ch)
	return ch, nil
}

func (s *scriptedLLM) Ping(ctx context.Context) error  { return s.pingErr }
func (s *scriptedLLM) IsTransientError(err error) bool { return false }

func (s *scriptedLLM) invocations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *scriptedLLM) callMessages(i int) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[i]
}

// recordingSink captures every emitted event in order.
type recordingSink struct {
	mu     sync.Mutex
	events []api.StreamEvent
	closed bool
}

func (s *recordingSink) Emit(event api.StreamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.events = append(s.events, event)
	if event.Type == api.EventDone || event.Type == api.EventError {
		s.closed = true
	}
}

func (s *recordingSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *recordingSink) typeSequence() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

func (s *recordingSink) fullText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for _, e := range s.events {
		if e.Type == api.EventTextDelta {
			b.WriteString(e.Content)
		}
	}
	return b.String()
}

func (s *recordingSink) widgets() []api.WidgetBlock {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []api.WidgetBlock
	for _, e := range s.events {
		if e.Type == api.EventWidget && e.Widget != nil {
			out = append(out, *e.Widget)
		}
	}
	return out
}

func (s *recordingSink) terminal() (api.StreamEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	var last api.StreamEvent
	for _, e := range s.events {
		if e.Type == api.EventDone || e.Type == api.EventError {
			count++
			last = e
		}
	}
	return last, count == 1
}

func testSysConfig() *config.SystemConfig {
	sys := config.DefaultSystemConfig()
	sys.WordDelayMs = 0
	return sys
}

func newTestEngine(client llm.LLMClient, registry *tools.Registry) *Engine {
	return NewEngine(client, registry, conversation.NewStore(50), testSysConfig(), Options{})
}

func userRequest(text string) *api.ChatRequest {
	return &api.ChatRequest{
		Messages:       []api.Turn{{Role: api.RoleUser, Content: text}},
		ConversationID: "conv-1",
	}
}

// widgetTool returns a registered tool whose result carries one
// email_preview widget.
func widgetTool(name string) api.Tool {
	return api.Tool{
		Descriptor: api.ToolDescriptor{Name: name, Domain: api.DomainEmail},
		Handler: func(ctx context.Context, args map[string]any) api.ToolResult {
			return api.ToolResult{
				Success: true,
				Data:    []map[string]any{{"from": "dana@example.com", "subject": "budget"}},
				Widgets: []api.WidgetBlock{{
					ID:   name + "-w",
					Type: api.WidgetEmailPreview,
					Data: map[string]any{"from": "dana@example.com", "subject": "budget"},
				}},
			}
		},
	}
}

func TestEmpathyPathNoTools(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`{"response":"I'm sorry you're not feeling well. Be kind to yourself today."}`,
	}}
	engine := newTestEngine(client, tools.NewRegistry())
	sink := &recordingSink{}

	engine.Process(context.Background(), userRequest("not feeling well today"), sink)

	assert.Equal(t, 1, client.invocations())
	assert.Equal(t, "I'm sorry you're not feeling well. Be kind to yourself today.", sink.fullText())
	assert.Empty(t, sink.widgets())

	terminal, exactlyOne := sink.terminal()
	assert.True(t, exactlyOne)
	assert.Equal(t, api.EventDone, terminal.Type)

	seq := sink.typeSequence()
	assert.Equal(t, api.EventStatus, seq[0])
}

func TestToolLoopEmitsWidgetsThenReply(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`{"tool_calls":[{"id":"c1","name":"fetch_messages","arguments":{"unreadOnly":true}}],"response":"Checking."}`,
		`{"response":"You have one unread email from Dana about the budget."}`,
	}}
	registry := tools.NewRegistry()
	registry.Register(widgetTool("fetch_messages"))
	engine := newTestEngine(client, registry)
	sink := &recordingSink{}

	engine.Process(context.Background(), userRequest("any unread messages"), sink)

	assert.Equal(t, 2, client.invocations())

	widgets := sink.widgets()
	require.Len(t, widgets, 1)
	assert.Equal(t, api.WidgetEmailPreview, widgets[0].Type)

	assert.Contains(t, sink.fullText(), "unread email from Dana")

	// status(Thinking) → widget → status(Processing) → text → done
	seq := sink.typeSequence()
	assert.Equal(t, api.EventStatus, seq[0])
	assert.Equal(t, api.EventWidget, seq[1])
	assert.Equal(t, api.EventStatus, seq[2])
	assert.Equal(t, api.EventDone, seq[len(seq)-1])

	// The second LLM call carries the tool results back.
	msgs := client.callMessages(1)
	last := msgs[len(msgs)-1]
	assert.Equal(t, "user", last.Role)
	assert.Contains(t, last.Content, `Tool "fetch_messages" returned:`)
}

func TestSummaryRequestSuppressesToolWidgets(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`{"tool_calls":[{"id":"c1","name":"fetch_messages","arguments":{}}],"response":"Checking."}`,
		`{"response":"Today: one budget email from Dana, one IT notice."}`,
	}}
	registry := tools.NewRegistry()
	registry.Register(widgetTool("fetch_messages"))
	engine := newTestEngine(client, registry)
	sink := &recordingSink{}

	engine.Process(context.Background(), userRequest("give me a summary of today's emails"), sink)

	assert.Empty(t, sink.widgets())
	assert.Contains(t, sink.fullText(), "budget email from Dana")

	terminal, exactlyOne := sink.terminal()
	assert.True(t, exactlyOne)
	assert.Equal(t, api.EventDone, terminal.Type)
}

func TestWidgetOrderFollowsCallOrder(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`{"tool_calls":[{"id":"c1","name":"tool_a","arguments":{}},{"id":"c2","name":"tool_b","arguments":{}}],"response":""}`,
		`{"response":"Both done."}`,
	}}
	registry := tools.NewRegistry()
	registry.Register(widgetTool("tool_a"))
	registry.Register(widgetTool("tool_b"))
	engine := newTestEngine(client, registry)
	sink := &recordingSink{}

	engine.Process(context.Background(), userRequest("any unread messages"), sink)

	widgets := sink.widgets()
	require.Len(t, widgets, 2)
	assert.Equal(t, "tool_a-w", widgets[0].ID)
	assert.Equal(t, "tool_b-w", widgets[1].ID)
}

func TestIterationCapApologizesWithoutError(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`{"tool_calls":[{"id":"c1","name":"fetch_messages","arguments":{}}],"response":""}`,
	}}
	registry := tools.NewRegistry()
	registry.Register(widgetTool("fetch_messages"))
	engine := newTestEngine(client, registry)
	sink := &recordingSink{}

	engine.Process(context.Background(), userRequest("any unread messages"), sink)

	assert.Equal(t, testSysConfig().MaxIterations, client.invocations())
	assert.Equal(t, capApology, sink.fullText())

	terminal, exactlyOne := sink.terminal()
	assert.True(t, exactlyOne)
	assert.Equal(t, api.EventDone, terminal.Type)
}

func TestValidationErrorOnNonUserLastTurn(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"response":"unused"}`}}
	engine := newTestEngine(client, tools.NewRegistry())
	sink := &recordingSink{}

	engine.Process(context.Background(), &api.ChatRequest{
		Messages: []api.Turn{{Role: api.RoleAssistant, Content: "I said something"}},
	}, sink)

	terminal, exactlyOne := sink.terminal()
	assert.True(t, exactlyOne)
	assert.Equal(t, api.EventError, terminal.Type)
	assert.Equal(t, api.ErrCodeValidation, terminal.Code)
	assert.Equal(t, 0, client.invocations())
}

func TestLLMUnavailable(t *testing.T) {
	client := &scriptedLLM{pingErr: errors.New("connection refused")}
	engine := newTestEngine(client, tools.NewRegistry())
	sink := &recordingSink{}

	engine.Process(context.Background(), userRequest("hello"), sink)

	terminal, _ := sink.terminal()
	assert.Equal(t, api.EventError, terminal.Type)
	assert.Equal(t, api.ErrCodeLLMUnavailable, terminal.Code)
	assert.Equal(t, 0, client.invocations())
}

func TestLLMStreamErrorSurfaces(t *testing.T) {
	client := &scriptedLLM{streamErr: errors.New("upstream 500")}
	engine := newTestEngine(client, tools.NewRegistry())
	sink := &recordingSink{}

	engine.Process(context.Background(), userRequest("hello"), sink)

	terminal, exactlyOne := sink.terminal()
	assert.True(t, exactlyOne)
	assert.Equal(t, api.EventError, terminal.Type)
	assert.Equal(t, api.ErrCodeLLMError, terminal.Code)
}

func TestEmptyPostToolReplyGetsFallback(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`{"tool_calls":[{"id":"c1","name":"fetch_messages","arguments":{}}],"response":""}`,
		`{"response":""}`,
	}}
	registry := tools.NewRegistry()
	registry.Register(widgetTool("fetch_messages"))
	engine := newTestEngine(client, registry)
	sink := &recordingSink{}

	engine.Process(context.Background(), userRequest("give me a summary of my inbox"), sink)

	assert.Equal(t, emptyResultApology, sink.fullText())
}

func TestFollowUpIncludesHistory(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"response":"Dana is organizing it."}`}}
	store := conversation.NewStore(50)
	store.Append("conv-1", conversation.NewEntry(api.RoleUser, "when is the design sync"))
	store.Append("conv-1", conversation.NewEntry(api.RoleAssistant, "The design sync is at 2 PM, organized by Dana."))
	engine := NewEngine(client, tools.NewRegistry(), store, testSysConfig(), Options{})
	sink := &recordingSink{}

	engine.Process(context.Background(), userRequest("who's organizing it?"), sink)

	msgs := client.callMessages(0)
	var sawHistory bool
	for _, m := range msgs {
		if strings.Contains(m.Content, "organized by Dana") {
			sawHistory = true
		}
	}
	assert.True(t, sawHistory, "prior turns should be in the LLM message list")
}

func TestStandaloneQueryOmitsHistory(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"response":"No invoices found."}`}}
	store := conversation.NewStore(50)
	store.Append("conv-1", conversation.NewEntry(api.RoleAssistant, "UNIQUE-PRIOR-CONTENT"))
	engine := NewEngine(client, tools.NewRegistry(), store, testSysConfig(), Options{})
	sink := &recordingSink{}

	engine.Process(context.Background(), userRequest("find invoice"), sink)

	msgs := client.callMessages(0)
	for _, m := range msgs {
		assert.NotContains(t, m.Content, "UNIQUE-PRIOR-CONTENT")
	}
}

func TestFailedToolFeedsErrorBackToLLM(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`{"tool_calls":[{"id":"c1","name":"broken","arguments":{}}],"response":""}`,
		`{"response":"I couldn't reach your mailbox just now."}`,
	}}
	registry := tools.NewRegistry()
	registry.Register(api.Tool{
		Descriptor: api.ToolDescriptor{Name: "broken", Domain: api.DomainEmail},
		Handler: func(ctx context.Context, args map[string]any) api.ToolResult {
			return api.ErrorResult("mail API: status 503")
		},
	})
	engine := newTestEngine(client, registry)
	sink := &recordingSink{}

	engine.Process(context.Background(), userRequest("any unread messages"), sink)

	msgs := client.callMessages(1)
	last := msgs[len(msgs)-1]
	assert.Contains(t, last.Content, `Tool "broken" failed: mail API: status 503`)

	terminal, _ := sink.terminal()
	assert.Equal(t, api.EventDone, terminal.Type)

	// Tool failures never surface as stream errors.
	for _, typ := range sink.typeSequence() {
		assert.NotEqual(t, api.EventError, typ)
	}
}

func TestConversationRecordsBothTurns(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"response":"Hi!"}`}}
	store := conversation.NewStore(50)
	engine := NewEngine(client, tools.NewRegistry(), store, testSysConfig(), Options{})
	sink := &recordingSink{}

	engine.Process(context.Background(), userRequest("hello"), sink)

	entries := store.All("conv-1")
	require.Len(t, entries, 2)
	assert.Equal(t, api.RoleUser, entries[0].Role)
	assert.Equal(t, "hello", entries[0].Content)
	assert.Equal(t, api.RoleAssistant, entries[1].Role)
	assert.Equal(t, "Hi!", entries[1].Content)
}
