package prompt

import (
	"strings"
	"testing"

	"concierge/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTools() []api.ToolDescriptor {
	return []api.ToolDescriptor{
		{Name: "fetch_messages", Description: "List inbox messages.", Domain: api.DomainEmail},
		{Name: "list_events", Description: "List calendar events.", Domain: api.DomainCalendar},
		{Name: "tell_time", Description: "Report the current time."}, // untagged
	}
}

func TestDetectDomains(t *testing.T) {
	r := NewRouter()

	assert.Equal(t, []string{"email"}, r.DetectDomains("any unread emails?"))
	assert.Equal(t, []string{"calendar"}, r.DetectDomains("what meetings do I have"))
	assert.ElementsMatch(t, []string{"email", "calendar"},
		r.DetectDomains("email me the meeting notes"))
	assert.Equal(t, []string{api.DomainGeneral}, r.DetectDomains("not feeling well today"))
}

func TestDetectDomainsCaseInsensitive(t *testing.T) {
	r := NewRouter()
	assert.Equal(t, r.DetectDomains("SHOW MY INBOX"), r.DetectDomains("show my inbox"))
	assert.Equal(t, []string{"email"}, r.DetectDomains("CHECK MY EMAIL"))
}

func TestDetectCapabilities(t *testing.T) {
	r := NewRouter()

	assert.Equal(t, []string{"custom_ui"}, r.DetectCapabilities("make me a dashboard widget"))
	assert.Empty(t, r.DetectCapabilities("any unread emails?"))
}

func TestRelevantTools(t *testing.T) {
	r := NewRouter()
	tools := testTools()

	emailView := r.RelevantTools(tools, []string{api.DomainEmail})
	require.Len(t, emailView, 2)
	assert.Equal(t, "fetch_messages", emailView[0].Name)
	assert.Equal(t, "tell_time", emailView[1].Name) // untagged always included

	generalView := r.RelevantTools(tools, []string{api.DomainGeneral})
	require.Len(t, generalView, 1)
	assert.Equal(t, "tell_time", generalView[0].Name)
}

func TestAssembleDeterministic(t *testing.T) {
	r := NewRouter()
	tools := testTools()

	a := r.Assemble("any unread emails?", tools, "Current time: noon")
	b := r.Assemble("any unread emails?", tools, "Current time: noon")
	assert.Equal(t, a, b)
}

func TestAssembleSections(t *testing.T) {
	r := NewRouter()

	out := r.Assemble("any unread emails?", testTools(), "Current time: noon")

	assert.Contains(t, out, "## Persona")
	assert.Contains(t, out, "## Guardrails")
	assert.Contains(t, out, "## Email")
	assert.NotContains(t, out, "## Calendar")
	assert.Contains(t, out, "## Available Tools")
	assert.Contains(t, out, "### fetch_messages")
	assert.Contains(t, out, "## Response Format")
	assert.Contains(t, out, "## User Context")
	assert.Contains(t, out, "Current time: noon")

	// Sections arrive in assembly order.
	assert.Less(t, strings.Index(out, "## Persona"), strings.Index(out, "## Guardrails"))
	assert.Less(t, strings.Index(out, "## Guardrails"), strings.Index(out, "## Email"))
	assert.Less(t, strings.Index(out, "## Available Tools"), strings.Index(out, "## Response Format"))
}

func TestAssembleNoTools(t *testing.T) {
	r := NewRouter()
	out := r.Assemble("hello there", nil, "")
	assert.Contains(t, out, "No tools available.")
	assert.NotContains(t, out, "## User Context")
}

func TestAssembleGeneralFallback(t *testing.T) {
	r := NewRouter()
	out := r.Assemble("how are you", testTools(), "")
	assert.Contains(t, out, "## General")
	assert.NotContains(t, out, "## Email")
}

func TestRenderToolsRequiredMarks(t *testing.T) {
	tools := []api.ToolDescriptor{{
		Name:        "search_messages",
		Description: "Search the mailbox.",
		Parameters: map[string]api.ParamSpec{
			"query": {Type: "string", Description: "Search terms."},
			"limit": {Type: "integer", Description: "Max results."},
		},
		Required: []string{"query"},
	}}

	out := renderTools(tools)
	assert.Contains(t, out, "- query (string, required): Search terms.")
	assert.Contains(t, out, "- limit (integer, optional): Max results.")
}
