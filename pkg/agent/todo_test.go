package agent

import (
	"testing"

	"github.com/nxtscape/webpilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceLoadsPendingTodos(t *testing.T) {
	store := NewTodoStore()
	store.Replace([]string{"open the site", "search", "read results"})

	todos := store.All()
	require.Len(t, todos, 3)
	for _, todo := range todos {
		assert.Equal(t, types.TodoPending, todo.Status)
		assert.NotEmpty(t, todo.ID)
	}
	assert.Equal(t, "open the site", todos[0].Content)
}

func TestReplaceDiscardsPreviousPlan(t *testing.T) {
	store := NewTodoStore()
	store.Replace([]string{"a", "b"})
	first := store.All()

	store.Replace([]string{"c"})
	todos := store.All()
	require.Len(t, todos, 1)
	assert.Equal(t, "c", todos[0].Content)
	// IDs keep advancing across plans, so old ids never alias new todos.
	assert.NotEqual(t, first[0].ID, todos[0].ID)
}

func TestNextPendingSkipsTerminal(t *testing.T) {
	store := NewTodoStore()
	store.Replace([]string{"a", "b", "c"})
	todos := store.All()

	store.SetStatus(todos[0].ID, types.TodoDone, "")
	store.SetStatus(todos[1].ID, types.TodoSkipped, "page missing")

	next, ok := store.NextPending()
	require.True(t, ok)
	assert.Equal(t, "c", next.Content)

	store.SetStatus(todos[2].ID, types.TodoDone, "")
	_, ok = store.NextPending()
	assert.False(t, ok)
}

func TestSetStatusRecordsSkipReasoning(t *testing.T) {
	store := NewTodoStore()
	store.Replace([]string{"a"})
	id := store.All()[0].ID

	require.True(t, store.SetStatus(id, types.TodoSkipped, "element never appeared"))
	assert.Equal(t, "element never appeared", store.All()[0].Reasoning)

	assert.False(t, store.SetStatus("todo_999", types.TodoDone, ""))
}

func TestCounts(t *testing.T) {
	store := NewTodoStore()
	store.Replace([]string{"a", "b", "c"})
	todos := store.All()
	store.SetStatus(todos[0].ID, types.TodoDone, "")
	store.SetStatus(todos[1].ID, types.TodoSkipped, "x")

	done, skipped := store.Counts()
	assert.Equal(t, 1, done)
	assert.Equal(t, 1, skipped)
}
