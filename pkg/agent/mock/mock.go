// Package mock is a scripted stand-in for the real engine, selected with
// the UseMockAgent flag. It answers from keyword-matched scenarios so the
// client side can be exercised without an LLM or live APIs.
package mock

import (
	"context"
	"strings"
	"time"

	"concierge/pkg/agent"
	"concierge/pkg/api"
	"concierge/pkg/widgets"
)

// Scenario is one canned reply triggered by any of its keywords.
type Scenario struct {
	Keywords []string
	Response string
	Widgets  []api.WidgetBlock
}

// Engine implements api.AgentEngine over a scenario table.
type Engine struct {
	scenarios []Scenario
	fallback  string
	wordDelay time.Duration
}

func NewEngine(wordDelayMs int) *Engine {
	return &Engine{
		scenarios: defaultScenarios(),
		fallback:  "This is a demo environment. Ask about your email or calendar to see sample data.",
		wordDelay: time.Duration(wordDelayMs) * time.Millisecond,
	}
}

func (e *Engine) Ping(ctx context.Context) error { return nil }

func (e *Engine) ToolNames() []string {
	return []string{"fetch_messages", "list_events"}
}

func (e *Engine) Process(ctx context.Context, req *api.ChatRequest, sink api.EventSink) {
	userTurn, ok := req.LastUserTurn()
	if !ok {
		sink.Emit(api.ErrorEvent(api.ErrCodeValidation, "last message must be a user message"))
		return
	}

	sink.Emit(api.StatusEvent("Thinking..."))

	scenario := e.match(userTurn.Content)
	for _, token := range agent.SplitWords(scenario.Response) {
		if sink.Closed() {
			return
		}
		sink.Emit(api.TextDeltaEvent(token))
		if e.wordDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(e.wordDelay):
			}
		}
	}

	for _, w := range scenario.Widgets {
		block := w
		sink.Emit(api.WidgetEvent(&block))
	}
	sink.Emit(api.DoneEvent())
}

func (e *Engine) match(query string) Scenario {
	q := strings.ToLower(query)
	for _, s := range e.scenarios {
		for _, kw := range s.Keywords {
			if strings.Contains(q, kw) {
				return s
			}
		}
	}
	return Scenario{Response: e.fallback}
}

func defaultScenarios() []Scenario {
	return []Scenario{
		{
			Keywords: []string{"email", "inbox", "unread", "mail"},
			Response: "You have 2 unread emails. The newer one is from Dana Whitfield about the Q3 budget review.",
			Widgets: []api.WidgetBlock{
				widgets.NewBlock(api.WidgetEmailPreview, map[string]any{
					"from":    "Dana Whitfield",
					"subject": "Q3 budget review",
					"snippet": "Can we walk through the revised numbers before Friday?",
					"unread":  true,
				}),
				widgets.NewBlock(api.WidgetEmailPreview, map[string]any{
					"from":    "IT Notifications",
					"subject": "Scheduled maintenance this weekend",
					"snippet": "Core services will be briefly unavailable on Saturday night.",
					"unread":  true,
				}),
			},
		},
		{
			Keywords: []string{"calendar", "meeting", "schedule", "event", "today"},
			Response: "You have one meeting today: the design sync at 2:00 PM.",
			Widgets: []api.WidgetBlock{
				widgets.NewBlock(api.WidgetCalendarEvent, map[string]any{
					"title":       "Design sync",
					"startTime":   "14:00",
					"endTime":     "14:45",
					"meetingLink": "https://meet.example.com/design-sync",
				}),
			},
		},
		{
			Keywords: []string{"hello", "hi ", "hey"},
			Response: "Hi! I can help you with your email and calendar. What do you need?",
		},
	}
}
