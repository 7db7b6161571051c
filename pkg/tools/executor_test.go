package tools

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"concierge/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecutorWith(tools ...api.Tool) *Executor {
	r := NewRegistry()
	for _, tool := range tools {
		r.Register(tool)
	}
	return NewExecutor(r)
}

func TestExecuteUnknownTool(t *testing.T) {
	e := newExecutorWith(testTool("fetch_messages", api.DomainEmail))

	res := e.Execute(context.Background(), api.ToolCall{ID: "1", Name: "bogus"})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Unknown tool: bogus")
	assert.Contains(t, res.Error, "fetch_messages")
}

func TestExecuteMissingRequiredParam(t *testing.T) {
	tool := api.Tool{
		Descriptor: api.ToolDescriptor{
			Name: "search_messages",
			Parameters: map[string]api.ParamSpec{
				"query": {Type: "string"},
			},
			Required: []string{"query"},
		},
		Handler: noopHandler,
	}
	e := newExecutorWith(tool)

	res := e.Execute(context.Background(), api.ToolCall{ID: "1", Name: "search_messages", Arguments: map[string]any{}})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid arguments for search_messages")

	res = e.Execute(context.Background(), api.ToolCall{
		ID: "2", Name: "search_messages",
		Arguments: map[string]any{"query": "invoice"},
	})
	assert.True(t, res.Success)
}

func TestExecuteTypeMismatch(t *testing.T) {
	tool := api.Tool{
		Descriptor: api.ToolDescriptor{
			Name: "fetch_messages",
			Parameters: map[string]api.ParamSpec{
				"limit": {Type: "integer"},
			},
		},
		Handler: noopHandler,
	}
	e := newExecutorWith(tool)

	res := e.Execute(context.Background(), api.ToolCall{
		ID: "1", Name: "fetch_messages",
		Arguments: map[string]any{"limit": "ten"},
	})
	assert.False(t, res.Success)
}

func TestExecuteRecoversHandlerPanic(t *testing.T) {
	tool := api.Tool{
		Descriptor: api.ToolDescriptor{Name: "explode"},
		Handler: func(ctx context.Context, args map[string]any) api.ToolResult {
			panic("boom")
		},
	}
	e := newExecutorWith(tool)

	res := e.Execute(context.Background(), api.ToolCall{ID: "1", Name: "explode"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "explode")
}

func TestExecuteManyPreservesIDMapping(t *testing.T) {
	echo := api.Tool{
		Descriptor: api.ToolDescriptor{Name: "echo"},
		Handler: func(ctx context.Context, args map[string]any) api.ToolResult {
			return api.ToolResult{Success: true, Data: args["value"]}
		},
	}
	e := newExecutorWith(echo)

	var calls []api.ToolCall
	for i := 0; i < 10; i++ {
		calls = append(calls, api.ToolCall{
			ID:        fmt.Sprintf("call-%d", i),
			Name:      "echo",
			Arguments: map[string]any{"value": fmt.Sprintf("v%d", i)},
		})
	}

	results := e.ExecuteMany(context.Background(), calls)
	require.Len(t, results, 10)
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("call-%d", i)
		assert.True(t, results[id].Success)
		assert.Equal(t, fmt.Sprintf("v%d", i), results[id].Data)
	}
}

func TestExecuteManyOneFailureDoesNotAbortOthers(t *testing.T) {
	ok := api.Tool{
		Descriptor: api.ToolDescriptor{Name: "ok"},
		Handler: func(ctx context.Context, args map[string]any) api.ToolResult {
			return api.ToolResult{Success: true, Data: "fine"}
		},
	}
	fail := api.Tool{
		Descriptor: api.ToolDescriptor{Name: "fail"},
		Handler: func(ctx context.Context, args map[string]any) api.ToolResult {
			return api.ErrorResult("upstream 500")
		},
	}
	e := newExecutorWith(ok, fail)

	results := e.ExecuteMany(context.Background(), []api.ToolCall{
		{ID: "a", Name: "ok"},
		{ID: "b", Name: "fail"},
		{ID: "c", Name: "ok"},
	})

	assert.True(t, results["a"].Success)
	assert.False(t, results["b"].Success)
	assert.Equal(t, "upstream 500", results["b"].Error)
	assert.True(t, results["c"].Success)
}

func TestExecuteManyRunsConcurrently(t *testing.T) {
	var inFlight, peak int32
	slow := api.Tool{
		Descriptor: api.ToolDescriptor{Name: "slow"},
		Handler: func(ctx context.Context, args map[string]any) api.ToolResult {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(30 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return api.ToolResult{Success: true}
		},
	}
	e := newExecutorWith(slow)

	e.ExecuteMany(context.Background(), []api.ToolCall{
		{ID: "a", Name: "slow"},
		{ID: "b", Name: "slow"},
		{ID: "c", Name: "slow"},
	})

	assert.Greater(t, atomic.LoadInt32(&peak), int32(1))
}

func TestExecuteSequential(t *testing.T) {
	var order []string
	record := api.Tool{
		Descriptor: api.ToolDescriptor{Name: "record"},
		Handler: func(ctx context.Context, args map[string]any) api.ToolResult {
			order = append(order, args["tag"].(string))
			return api.ToolResult{Success: true}
		},
	}
	e := newExecutorWith(record)

	results := e.ExecuteSequential(context.Background(), []api.ToolCall{
		{ID: "1", Name: "record", Arguments: map[string]any{"tag": "first"}},
		{ID: "2", Name: "record", Arguments: map[string]any{"tag": "second"}},
	})

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Len(t, results, 2)
}
