package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWellFormed(t *testing.T) {
	raw := `{"thinking":"check the inbox","tool_calls":[{"id":"abc","name":"fetch_messages","arguments":{"unreadOnly":true}}],"response":"Let me check."}`

	p := Parse(raw)

	assert.Equal(t, "check the inbox", p.Thinking)
	require.Len(t, p.ToolCalls, 1)
	assert.Equal(t, "abc", p.ToolCalls[0].ID)
	assert.Equal(t, "fetch_messages", p.ToolCalls[0].Name)
	assert.Equal(t, true, p.ToolCalls[0].Arguments["unreadOnly"])
	assert.Equal(t, "Let me check.", p.Response)
}

func TestParseFencedJSON(t *testing.T) {
	raw := "Here you go:\n```json\n{\"response\":\"All clear.\"}\n```"

	p := Parse(raw)

	assert.Equal(t, "All clear.", p.Response)
	assert.Empty(t, p.ToolCalls)
}

func TestParseUnlabeledFence(t *testing.T) {
	raw := "```\n{\"response\":\"done\"}\n```"
	assert.Equal(t, "done", Parse(raw).Response)
}

func TestParseTrailingCommas(t *testing.T) {
	raw := `{"tool_calls":[{"name":"search_messages","arguments":{"query":"invoice",},},],"response":"Searching.",}`

	p := Parse(raw)

	require.Len(t, p.ToolCalls, 1)
	assert.Equal(t, "search_messages", p.ToolCalls[0].Name)
	assert.Equal(t, "Searching.", p.Response)
}

func TestParseRawNewlinesInStrings(t *testing.T) {
	raw := "{\"response\":\"line one\nline two\"}"

	p := Parse(raw)

	assert.Equal(t, "line one\nline two", p.Response)
}

func TestParseResponseObject(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`{"response":{"summary":"3 unread emails"}}`, "3 unread emails"},
		{`{"response":{"text":"the text field"}}`, "the text field"},
		{`{"response":{"message":"the message field"}}`, "the message field"},
		{`{"response":{"summary":"wins","text":"loses"}}`, "wins"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Parse(c.raw).Response, c.raw)
	}
}

func TestParseMintsMissingToolCallIDs(t *testing.T) {
	raw := `{"tool_calls":[{"name":"a","arguments":{}},{"name":"b","arguments":{}}],"response":""}`

	p := Parse(raw)

	require.Len(t, p.ToolCalls, 2)
	assert.True(t, strings.HasPrefix(p.ToolCalls[0].ID, "tool-"))
	assert.True(t, strings.HasPrefix(p.ToolCalls[1].ID, "tool-"))
	assert.NotEqual(t, p.ToolCalls[0].ID, p.ToolCalls[1].ID)
}

func TestParseCamelCaseToolCalls(t *testing.T) {
	raw := `{"toolCalls":[{"name":"list_events","arguments":{}}],"response":"ok"}`

	p := Parse(raw)

	require.Len(t, p.ToolCalls, 1)
	assert.Equal(t, "list_events", p.ToolCalls[0].Name)
}

func TestParseDropsNamelessCalls(t *testing.T) {
	raw := `{"tool_calls":[{"id":"x","arguments":{}}],"response":"ok"}`
	assert.Empty(t, Parse(raw).ToolCalls)
}

func TestParseUnterminatedJSONFallsBackToRegex(t *testing.T) {
	raw := `{"thinking":"...","response":"Found it","tool_calls":[{"name":"broken`

	p := Parse(raw)

	assert.Equal(t, "Found it", p.Response)
	assert.Empty(t, p.ToolCalls)
}

func TestParsePureProse(t *testing.T) {
	raw := "I'm sorry to hear that. Take care of yourself today."

	p := Parse(raw)

	assert.Equal(t, raw, p.Response)
	assert.Empty(t, p.ToolCalls)
}

func TestParseResidueAroundJSON(t *testing.T) {
	raw := "Sure thing!\n{\"unrelated\": true,,,}\n"

	p := Parse(raw)

	assert.Equal(t, "Sure thing!", p.Response)
}

func TestParseNothingSalvageable(t *testing.T) {
	p := Parse("```json\n{,,,}\n```")
	assert.Equal(t, DefaultResponse, p.Response)
}

func TestParseEscapedResponseField(t *testing.T) {
	raw := `garbage before {"response":"a \"quoted\" word\nnext line" garbage after`

	p := Parse(raw)

	assert.Equal(t, "a \"quoted\" word\nnext line", p.Response)
}

func TestParseWidgets(t *testing.T) {
	raw := `{"response":"Here is the preview","widgets":[{"type":"email_preview","data":{"from":"a@b.c","subject":"hi"}}]}`

	p := Parse(raw)

	require.Len(t, p.Widgets, 1)
	assert.Equal(t, "email_preview", p.Widgets[0].Type)
	assert.Equal(t, "hi", p.Widgets[0].Data["subject"])
}
