package tools

import (
	"context"
	"testing"

	"concierge/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(ctx context.Context, args map[string]any) api.ToolResult {
	return api.ToolResult{Success: true}
}

func testTool(name, domain string) api.Tool {
	return api.Tool{
		Descriptor: api.ToolDescriptor{Name: name, Domain: domain},
		Handler:    noopHandler,
	}
}

func TestRegisterAndByName(t *testing.T) {
	r := NewRegistry()
	r.Register(testTool("fetch_messages", api.DomainEmail))

	tool, ok := r.ByName("fetch_messages")
	require.True(t, ok)
	assert.Equal(t, "fetch_messages", tool.Descriptor.Name)

	_, ok = r.ByName("missing")
	assert.False(t, ok)
}

func TestRegisterLastWriteWins(t *testing.T) {
	r := NewRegistry()
	r.Register(testTool("fetch_messages", api.DomainEmail))
	r.Register(testTool("fetch_messages", api.DomainCalendar))

	tool, ok := r.ByName("fetch_messages")
	require.True(t, ok)
	assert.Equal(t, api.DomainCalendar, tool.Descriptor.Domain)
	assert.Len(t, r.AllNames(), 1)
}

func TestRegisterUnregisterRestoresState(t *testing.T) {
	r := NewRegistry()
	r.Register(testTool("a", api.DomainEmail))
	before := r.AllNames()

	r.Register(testTool("b", api.DomainEmail))
	r.Unregister("b")

	assert.Equal(t, before, r.AllNames())
}

func TestByDomainIncludesUntagged(t *testing.T) {
	r := NewRegistry()
	r.Register(testTool("fetch_messages", api.DomainEmail))
	r.Register(testTool("list_events", api.DomainCalendar))
	r.Register(testTool("tell_time", ""))

	emailView := r.ByDomain([]string{api.DomainEmail})
	names := make([]string, len(emailView))
	for i, tool := range emailView {
		names[i] = tool.Descriptor.Name
	}
	assert.Equal(t, []string{"fetch_messages", "tell_time"}, names)

	bothView := r.ByDomain([]string{api.DomainEmail, api.DomainCalendar})
	assert.Len(t, bothView, 3)
}

func TestAllNamesAndDescriptorsSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(testTool("zeta", ""))
	r.Register(testTool("alpha", ""))

	assert.Equal(t, []string{"alpha", "zeta"}, r.AllNames())

	descs := r.AllDescriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, "alpha", descs[0].Name)
}
