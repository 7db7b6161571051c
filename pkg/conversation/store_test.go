package conversation

import (
	"fmt"
	"sync"
	"testing"

	"concierge/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndAll(t *testing.T) {
	s := NewStore(10)

	s.Append("c1", NewEntry(api.RoleUser, "hello"))
	s.Append("c1", NewEntry(api.RoleAssistant, "hi there"))

	entries := s.All("c1")
	require.Len(t, entries, 2)
	assert.Equal(t, "hello", entries[0].Content)
	assert.Equal(t, "hi there", entries[1].Content)
	assert.Equal(t, 2, s.Len("c1"))
}

func TestPruneKeepsNewestInOrder(t *testing.T) {
	s := NewStore(3)

	for i := 0; i < 7; i++ {
		s.Append("c1", NewEntry(api.RoleUser, fmt.Sprintf("msg-%d", i)))
	}

	entries := s.All("c1")
	require.Len(t, entries, 3)
	assert.Equal(t, "msg-4", entries[0].Content)
	assert.Equal(t, "msg-5", entries[1].Content)
	assert.Equal(t, "msg-6", entries[2].Content)
}

func TestLengthNeverExceedsBoundAfterAnyAppend(t *testing.T) {
	s := NewStore(5)
	for i := 0; i < 20; i++ {
		s.Append("c1", NewEntry(api.RoleUser, "x"))
		assert.LessOrEqual(t, s.Len("c1"), 5)
	}
}

func TestRecentReturnsTail(t *testing.T) {
	s := NewStore(10)
	for i := 0; i < 6; i++ {
		s.Append("c1", NewEntry(api.RoleUser, fmt.Sprintf("msg-%d", i)))
	}

	recent := s.Recent("c1", 2)
	require.Len(t, recent, 2)
	assert.Equal(t, "msg-4", recent[0].Content)
	assert.Equal(t, "msg-5", recent[1].Content)

	assert.Len(t, s.Recent("c1", 100), 6)
	assert.Nil(t, s.Recent("missing", 5))
	assert.Nil(t, s.Recent("c1", 0))
}

func TestClear(t *testing.T) {
	s := NewStore(10)
	s.Append("c1", NewEntry(api.RoleUser, "a"))
	s.Append("c2", NewEntry(api.RoleUser, "b"))

	s.Clear("c1")
	assert.Equal(t, 0, s.Len("c1"))
	assert.Equal(t, 1, s.Len("c2"))

	s.ClearAll()
	assert.Equal(t, 0, s.Len("c2"))
}

func TestLastActivity(t *testing.T) {
	s := NewStore(10)

	_, ok := s.LastActivity("c1")
	assert.False(t, ok)

	s.Append("c1", NewEntry(api.RoleUser, "a"))
	ts, ok := s.LastActivity("c1")
	assert.True(t, ok)
	assert.False(t, ts.IsZero())
}

func TestEstimateTokens(t *testing.T) {
	s := NewStore(10)
	s.Append("c1", Entry{Role: api.RoleUser, Content: "12345678"})
	assert.Equal(t, 2, s.EstimateTokens("c1"))
	assert.Equal(t, 0, s.EstimateTokens("missing"))
}

func TestConcurrentDistinctConversations(t *testing.T) {
	s := NewStore(50)
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			conv := fmt.Sprintf("c%d", id)
			for i := 0; i < 100; i++ {
				s.Append(conv, NewEntry(api.RoleUser, "x"))
				s.Recent(conv, 10)
			}
		}(g)
	}
	wg.Wait()

	for g := 0; g < 8; g++ {
		assert.Equal(t, 50, s.Len(fmt.Sprintf("c%d", g)))
	}
}
