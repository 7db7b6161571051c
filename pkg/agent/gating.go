package agent

import "strings"

// standalonePhrases are short queries that are complete on their own;
// an exact match skips history entirely.
var standalonePhrases = map[string]bool{
	"find invoice":        true,
	"show emails":         true,
	"show my emails":      true,
	"check email":         true,
	"check my email":      true,
	"check calendar":      true,
	"check my calendar":   true,
	"any unread messages": true,
	"any new emails":      true,
	"what's on today":     true,
	"list events":         true,
}

// contextWords are single-word follow-up indicators: pronouns,
// demonstratives, comparatives, and short acknowledgements.
var contextWords = map[string]bool{
	"it": true, "its": true, "that": true, "this": true, "these": true,
	"those": true, "them": true, "they": true, "he": true, "she": true,
	"him": true, "her": true, "his": true, "hers": true, "theirs": true,
	"more": true, "another": true, "again": true, "instead": true,
	"earlier": true, "previous": true, "former": true, "latter": true,
	"also": true, "too": true,
	"yes": true, "no": true, "ok": true, "okay": true, "sure": true,
	"thanks": true, "thank": true, "yep": true, "yeah": true, "nope": true,
}

// contextPhrases are multi-word follow-up indicators matched by substring.
var contextPhrases = []string{
	"the one", "the last", "the first", "the same", "as well",
	"what about", "how about", "and the", "that one", "this one",
}

// actionVerbs opening a query mark it as a fresh standalone command.
var actionVerbs = map[string]bool{
	"find": true, "search": true, "show": true, "get": true, "list": true,
	"fetch": true, "check": true, "open": true, "display": true,
	"lookup": true, "look": true,
}

// IncludeHistory decides whether prior conversation turns are passed to
// the LLM for this query. The rule set is deliberately simple and ordered:
// standalone phrase → no; contextual indicator → yes; leading action verb
// → no; ambiguous → yes.
func IncludeHistory(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}

	if standalonePhrases[q] {
		return false
	}

	if hasContextIndicator(q) {
		return true
	}

	words := strings.Fields(q)
	if len(words) > 0 && actionVerbs[strings.Trim(words[0], ".,!?")] {
		return false
	}

	return true
}

func hasContextIndicator(q string) bool {
	for _, w := range strings.Fields(q) {
		if contextWords[strings.Trim(w, ".,!?;:'\"")] {
			return true
		}
	}
	for _, p := range contextPhrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

// summaryKeywords flag a query as asking for a text digest; tool-result
// widgets are suppressed for such turns.
var summaryKeywords = []string{
	"summary", "summarize", "summarise", "sum up", "brief", "briefly",
	"overview", "recap", "catch me up", "quick look", "highlights",
	"what's important", "key points", "tldr", "tl;dr", "in short", "gist",
}

// IsSummaryRequest matches the query against the summary keyword set,
// case-insensitive, by substring.
func IsSummaryRequest(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range summaryKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
