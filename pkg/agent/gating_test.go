package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIncludeHistoryStandalonePhrases(t *testing.T) {
	assert.False(t, IncludeHistory("find invoice"))
	assert.False(t, IncludeHistory("show emails"))
	assert.False(t, IncludeHistory("  Check Calendar  "))
}

func TestIncludeHistoryContextIndicators(t *testing.T) {
	assert.True(t, IncludeHistory("who's organizing it?"))
	assert.True(t, IncludeHistory("show me that one"))
	assert.True(t, IncludeHistory("yes"))
	assert.True(t, IncludeHistory("thanks!"))
	assert.True(t, IncludeHistory("what about the last meeting"))
}

func TestIncludeHistoryActionVerbStart(t *testing.T) {
	assert.False(t, IncludeHistory("find the budget spreadsheet"))
	assert.False(t, IncludeHistory("search for flights to Lisbon"))
	assert.False(t, IncludeHistory("list my calendars"))
}

func TestIncludeHistoryDefaultsToInclude(t *testing.T) {
	assert.True(t, IncludeHistory("what did Dana say"))
	assert.True(t, IncludeHistory(""))
}

func TestIsSummaryRequest(t *testing.T) {
	assert.True(t, IsSummaryRequest("give me a summary of today's emails"))
	assert.True(t, IsSummaryRequest("TL;DR please"))
	assert.True(t, IsSummaryRequest("catch me up on my inbox"))
	assert.True(t, IsSummaryRequest("Summarise the thread"))
	assert.False(t, IsSummaryRequest("any unread messages"))
	assert.False(t, IsSummaryRequest("send an email to Dana"))
}

func TestSplitWordsRoundTrips(t *testing.T) {
	cases := []string{
		"hello world",
		"  leading and trailing  ",
		"line one\nline two",
		"single",
		"",
		"tabs\tand  double  spaces",
	}
	for _, c := range cases {
		tokens := SplitWords(c)
		assert.Equal(t, c, strings.Join(tokens, ""), "round trip failed for %q", c)
	}
}

func TestSplitWordsTokens(t *testing.T) {
	tokens := SplitWords("one two three")
	assert.Equal(t, []string{"one ", "two ", "three"}, tokens)
}
