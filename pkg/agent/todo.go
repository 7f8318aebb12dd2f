// Package agent implements the sub-agent task loop: planning steps into a
// todo store, executing them against the browser and external tools,
// validating completion, and streaming progress over the event bus.
package agent

import (
	"fmt"
	"sync"

	"github.com/nxtscape/webpilot/pkg/types"
)

// TodoStore holds the current plan's steps. The sub-agent loop reads and
// writes status transitions but treats the store as external state it does
// not own.
type TodoStore struct {
	mu     sync.Mutex
	todos  []*types.Todo
	nextID int
}

// NewTodoStore creates an empty store.
func NewTodoStore() *TodoStore {
	return &TodoStore{}
}

// Replace loads a fresh plan, discarding any previous todos.
func (s *TodoStore) Replace(steps []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.todos = make([]*types.Todo, 0, len(steps))
	for _, step := range steps {
		s.nextID++
		s.todos = append(s.todos, &types.Todo{
			ID:      fmt.Sprintf("todo_%d", s.nextID),
			Content: step,
			Status:  types.TodoPending,
		})
	}
}

// All returns copies of the todos in plan order.
func (s *TodoStore) All() []types.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Todo, len(s.todos))
	for i, todo := range s.todos {
		out[i] = *todo
	}
	return out
}

// NextPending returns a copy of the first non-terminal todo, or false when
// every todo is done or skipped.
func (s *TodoStore) NextPending() (types.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, todo := range s.todos {
		if !todo.IsTerminal() {
			return *todo, true
		}
	}
	return types.Todo{}, false
}

// SetStatus transitions a todo to the given status. Reasoning is recorded
// for skips and ignored otherwise.
func (s *TodoStore) SetStatus(id string, status types.TodoStatus, reasoning string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, todo := range s.todos {
		if todo.ID == id {
			todo.Status = status
			if status == types.TodoSkipped {
				todo.Reasoning = reasoning
			}
			return true
		}
	}
	return false
}

// Counts returns how many todos are done and skipped.
func (s *TodoStore) Counts() (done, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, todo := range s.todos {
		switch todo.Status {
		case types.TodoDone:
			done++
		case types.TodoSkipped:
			skipped++
		}
	}
	return done, skipped
}
