package types

// TodoStatus tracks one plan step through its lifecycle.
type TodoStatus string

const (
	TodoPending TodoStatus = "todo"    // TodoPending means the step has not started.
	TodoDoing   TodoStatus = "doing"   // TodoDoing means the step is being executed.
	TodoDone    TodoStatus = "done"    // TodoDone means the step completed successfully.
	TodoSkipped TodoStatus = "skipped" // TodoSkipped means the step failed and was abandoned with reasoning.
)

// Todo is one atomic step of a plan.
type Todo struct {
	// ID is the stable identifier assigned by the store.
	ID string

	// Content is the natural-language description of the step.
	Content string

	// Status is the current lifecycle state.
	Status TodoStatus

	// Reasoning explains a skip; empty for other statuses.
	Reasoning string
}

// IsTerminal returns true once the todo no longer needs execution.
func (t *Todo) IsTerminal() bool {
	return t.Status == TodoDone || t.Status == TodoSkipped
}
