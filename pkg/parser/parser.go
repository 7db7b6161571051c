// Package parser extracts a structured record from free-form LLM output.
// Models are instructed to emit a single JSON object, but in practice the
// output arrives fenced, truncated, comma-ridden, or as pure prose. The
// parser never fails a turn: it always produces a ParsedResponse.
package parser

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"concierge/pkg/api"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultResponse is returned when nothing textual can be salvaged.
const DefaultResponse = "I've processed your request."

// ParsedResponse is the normalized result of one LLM turn.
type ParsedResponse struct {
	Thinking  string                 `json:"thinking,omitempty"`
	ToolCalls []api.ToolCall         `json:"toolCalls,omitempty"`
	Response  string                 `json:"response"`
	Widgets   []api.WidgetDescriptor `json:"widgets,omitempty"`
}

var (
	fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

	// "response": "..." with properly escaped content.
	responseFieldRe = regexp.MustCompile(`"response"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	// Same field but with raw newlines inside the literal.
	responseFieldLooseRe = regexp.MustCompile(`(?s)"response"\s*:\s*"(.*?)"\s*[,}]`)

	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

	greedyObjectRe = regexp.MustCompile(`(?s)\{.*\}`)
)

var toolCallCounter uint64

func mintToolCallID() string {
	return fmt.Sprintf("tool-%d", atomic.AddUint64(&toolCallCounter, 1))
}

// rawRecord mirrors the structured output contract with both snake_case
// and camelCase spellings of the tool call list.
type rawRecord struct {
	Thinking      string                 `json:"thinking"`
	ToolCalls     []rawToolCall          `json:"tool_calls"`
	ToolCallsCaml []rawToolCall          `json:"toolCalls"`
	Response      jsoniter.RawMessage    `json:"response"`
	Widgets       []api.WidgetDescriptor `json:"widgets"`
}

type rawToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Parse runs the full ladder: fence unwrap, brace slice, strict parse,
// repair-and-retry, then plain-text extraction.
func Parse(raw string) *ParsedResponse {
	candidate := unwrapFence(raw)
	candidate = sliceBraces(candidate)

	if candidate != "" {
		var rec rawRecord
		if err := json.UnmarshalFromString(candidate, &rec); err == nil {
			return normalize(raw, &rec)
		}

		repaired := repair(candidate)
		var rec2 rawRecord
		if err := json.UnmarshalFromString(repaired, &rec2); err == nil {
			return normalize(raw, &rec2)
		}
	}

	return &ParsedResponse{Response: extractPlainText(raw)}
}

// unwrapFence takes the body of the first fenced code block if one exists.
func unwrapFence(s string) string {
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// sliceBraces cuts from the first '{' to the last '}'. Empty result means
// no JSON object is locatable.
func sliceBraces(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

// repair applies the two observed-misbehavior passes: trailing commas
// before a closing bracket, and raw newlines inside string literals.
func repair(s string) string {
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return escapeRawNewlines(s)
}

// escapeRawNewlines walks the input tracking string-literal state and
// replaces bare \n and \r inside literals with their escape sequences.
func escapeRawNewlines(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for _, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			case r == '\n':
				b.WriteString(`\n`)
				continue
			case r == '\r':
				b.WriteString(`\r`)
				continue
			}
		} else if r == '"' {
			inString = true
		}
		b.WriteRune(r)
	}
	return b.String()
}

// normalize turns a parsed record into the final ParsedResponse: merge
// both tool-call spellings, mint missing ids, and flatten the response
// field to a string.
func normalize(raw string, rec *rawRecord) *ParsedResponse {
	out := &ParsedResponse{Thinking: rec.Thinking}

	calls := rec.ToolCalls
	if len(calls) == 0 {
		calls = rec.ToolCallsCaml
	}
	for _, c := range calls {
		if c.Name == "" {
			continue
		}
		id := c.ID
		if id == "" {
			id = mintToolCallID()
		}
		args := c.Arguments
		if args == nil {
			args = map[string]any{}
		}
		out.ToolCalls = append(out.ToolCalls, api.ToolCall{
			ID:        id,
			Name:      c.Name,
			Arguments: args,
		})
	}

	out.Widgets = rec.Widgets
	out.Response = normalizeResponseField(raw, rec.Response)
	return out
}

// normalizeResponseField flattens the response value. Objects yield their
// summary, text, or message field, in that priority order; anything else
// falls back to the plain-text extractor.
func normalizeResponseField(raw string, field jsoniter.RawMessage) string {
	if len(field) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(field, &asString); err == nil {
		return asString
	}

	var asObject map[string]any
	if err := json.Unmarshal(field, &asObject); err == nil {
		for _, key := range []string{"summary", "text", "message"} {
			if v, ok := asObject[key].(string); ok && v != "" {
				return v
			}
		}
	}

	return extractPlainText(raw)
}

// extractPlainText is the last rung of the ladder: fish the response field
// out with regexes, or strip JSON scaffolding and return the residue.
func extractPlainText(raw string) string {
	if m := responseFieldRe.FindStringSubmatch(raw); m != nil {
		return unescapeJSONString(m[1])
	}
	if m := responseFieldLooseRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}

	residue := fenceRe.ReplaceAllString(raw, "")
	residue = greedyObjectRe.ReplaceAllString(residue, "")
	residue = strings.TrimSpace(residue)
	if residue == "" {
		return DefaultResponse
	}
	return residue
}

// unescapeJSONString resolves the standard JSON escapes in a regex-captured
// string body.
func unescapeJSONString(s string) string {
	var out string
	if err := json.UnmarshalFromString(`"`+s+`"`, &out); err != nil {
		return s
	}
	return out
}
