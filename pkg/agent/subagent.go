package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/nxtscape/webpilot/pkg/browser"
	"github.com/nxtscape/webpilot/pkg/bus"
	"github.com/nxtscape/webpilot/pkg/grounding"
	"github.com/nxtscape/webpilot/pkg/llm"
	"github.com/nxtscape/webpilot/pkg/logging"
	"github.com/nxtscape/webpilot/pkg/mcp"
	"github.com/nxtscape/webpilot/pkg/types"
)

// LoopState is the sub-agent's position in its run lifecycle.
type LoopState string

const (
	StatePlanning   LoopState = "planning"
	StateExecuting  LoopState = "executing"
	StateValidating LoopState = "validating"
	StateDone       LoopState = "done"
	StateFailed     LoopState = "failed"
)

const (
	// DefaultMaxReplans bounds how many times an incomplete validation may
	// send the loop back to planning.
	DefaultMaxReplans = 2

	// maxConsecutiveSkips is the give-up threshold: this many skipped steps
	// in a row means the remaining plan is no longer meaningful.
	maxConsecutiveSkips = 2
)

// SubAgent runs one task to completion: plan, execute, validate, summarize.
// Steps are strictly sequential; every state transition and todo change is
// published on the bus. A SubAgent is single-use.
type SubAgent struct {
	driver     browser.Driver
	provider   llm.Provider
	grounder   *grounding.Grounder
	mcpTool    *mcp.MCPTool
	todos      *TodoStore
	validator  *Validator
	summarizer *Summarizer
	events     *bus.Bus
	logger     *logging.Logger

	maxReplans int
	history    []string
}

// Option configures a SubAgent.
type Option func(*SubAgent)

// WithMCPTool enables external tool actions.
func WithMCPTool(tool *mcp.MCPTool) Option {
	return func(s *SubAgent) {
		s.mcpTool = tool
	}
}

// WithMaxReplans overrides the replan bound.
func WithMaxReplans(n int) Option {
	return func(s *SubAgent) {
		if n >= 0 {
			s.maxReplans = n
		}
	}
}

// WithTodoStore uses an externally owned store, letting observers inspect
// the plan while the loop runs.
func WithTodoStore(store *TodoStore) Option {
	return func(s *SubAgent) {
		s.todos = store
	}
}

// New creates a sub-agent over the given collaborators.
func New(driver browser.Driver, provider llm.Provider, events *bus.Bus, opts ...Option) *SubAgent {
	logger, _ := logging.NewLogger("agent")
	s := &SubAgent{
		driver:     driver,
		provider:   provider,
		grounder:   grounding.New(driver, provider),
		todos:      NewTodoStore(),
		validator:  NewValidator(provider),
		summarizer: NewSummarizer(provider, events),
		events:     events,
		logger:     logger,
		maxReplans: DefaultMaxReplans,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run drives the task to a terminal state. Cancellation is observed at step
// boundaries: a cancelled context publishes execution-status cancelled and
// returns the context error. A run that reaches Failed returns nil; the
// failure is reported through the bus.
func (s *SubAgent) Run(ctx context.Context, task string) error {
	s.events.PublishExecutionStatus(types.StatusRunning, task)

	state := StatePlanning
	replans := 0
	consecutiveSkips := 0
	var failReason string
	var suggestions []string

	for {
		if err := ctx.Err(); err != nil {
			s.events.PublishExecutionStatus(types.StatusCancelled, "run cancelled")
			return err
		}

		s.logger.Infof("state: %s", state)

		switch state {
		case StatePlanning:
			steps, err := s.planSteps(ctx, task, suggestions)
			if err != nil {
				failReason = fmt.Sprintf("planning failed: %v", err)
				state = StateFailed
				continue
			}
			s.todos.Replace(steps)
			s.publishPlan()
			s.narrate(fmt.Sprintf("Planned %d steps", len(steps)))
			state = StateExecuting

		case StateExecuting:
			todo, ok := s.todos.NextPending()
			if !ok {
				state = StateValidating
				continue
			}

			s.todos.SetStatus(todo.ID, types.TodoDoing, "")
			s.publishPlan()

			observation, err := s.executeStep(ctx, task, todo)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				s.todos.SetStatus(todo.ID, types.TodoSkipped, err.Error())
				s.publishPlan()
				s.record(fmt.Sprintf("skipped %q: %v", todo.Content, err))
				consecutiveSkips++
				if consecutiveSkips >= maxConsecutiveSkips {
					failReason = fmt.Sprintf("abandoned after %d consecutive failed steps, last: %v", consecutiveSkips, err)
					state = StateFailed
				}
				continue
			}

			s.todos.SetStatus(todo.ID, types.TodoDone, "")
			s.publishPlan()
			s.record(observation)
			consecutiveSkips = 0

		case StateValidating:
			verdict, err := s.validate(ctx, task)
			if err != nil {
				failReason = fmt.Sprintf("validation failed: %v", err)
				state = StateFailed
				continue
			}
			if verdict.IsComplete {
				state = StateDone
				continue
			}
			if replans >= s.maxReplans {
				failReason = fmt.Sprintf("incomplete after %d replans: %s", replans, verdict.Reasoning)
				state = StateFailed
				continue
			}
			replans++
			suggestions = verdict.Suggestions
			s.narrate(fmt.Sprintf("Not complete yet, replanning (%d/%d): %s", replans, s.maxReplans, verdict.Reasoning))
			state = StatePlanning

		case StateDone:
			if _, err := s.summarizer.Summarize(ctx, task, s.history); err != nil {
				s.logger.Warnf("summary failed: %v", err)
			}
			s.events.PublishExecutionStatus(types.StatusDone, "")
			return nil

		case StateFailed:
			s.events.PublishMessage(s.events.GenerateID("msg"), failReason, types.RoleError)
			s.events.PublishExecutionStatus(types.StatusError, failReason)
			return nil
		}
	}
}

// planSteps asks the model for an ordered step list, clamped to at most
// five entries.
func (s *SubAgent) planSteps(ctx context.Context, task string, suggestions []string) ([]string, error) {
	pageState, err := s.driver.GetState(ctx)
	if err != nil {
		// Planning can proceed without a page snapshot.
		s.logger.Warnf("page state unavailable for planning: %v", err)
		pageState = nil
	}

	var p plan
	if err := llm.CompleteJSON(ctx, s.provider, buildPlanPrompt(task, pageState, suggestions), &p); err != nil {
		return nil, err
	}
	if len(p.Steps) == 0 {
		return nil, fmt.Errorf("planner returned no steps")
	}
	if len(p.Steps) > 5 {
		p.Steps = p.Steps[:5]
	}
	return p.Steps, nil
}

// executeStep selects a tool for one todo and runs it. The page snapshot is
// fetched fresh here so the model never reasons over state mutated by a
// previous step.
func (s *SubAgent) executeStep(ctx context.Context, task string, todo types.Todo) (string, error) {
	pageState, err := s.driver.GetState(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page state: %w", err)
	}

	var act action
	if err := llm.CompleteJSON(ctx, s.provider, buildActionPrompt(task, todo, pageState, s.history), &act); err != nil {
		return "", fmt.Errorf("action selection failed: %w", err)
	}

	if act.Reasoning != "" {
		s.narrate(act.Reasoning)
	}
	s.logger.Infof("step %q: action=%s", todo.Content, act.Kind)

	return s.dispatch(ctx, &act, todo.Content)
}

// validate fetches a fresh snapshot and asks the validator for a verdict.
func (s *SubAgent) validate(ctx context.Context, task string) (*Validation, error) {
	pageState, err := s.driver.GetState(ctx)
	if err != nil {
		pageState = nil
	}
	return s.validator.Validate(ctx, task, pageState, s.history)
}

// record appends an observation to the history, truncating oversized
// entries so later prompts stay bounded.
func (s *SubAgent) record(observation string) {
	const maxEntry = 2000
	if len(observation) > maxEntry {
		observation = observation[:maxEntry] + "..."
	}
	s.history = append(s.history, observation)
}

// narrate publishes a progress message.
func (s *SubAgent) narrate(content string) {
	s.events.PublishMessage(s.events.GenerateID("msg"), content, types.RoleNarration)
}

// publishPlan republishes the whole todo list under one message id, so
// renderers show a single live-updating checklist.
func (s *SubAgent) publishPlan() {
	todos := s.todos.All()
	var sb strings.Builder
	for _, todo := range todos {
		marker := " "
		switch todo.Status {
		case types.TodoDoing:
			marker = ">"
		case types.TodoDone:
			marker = "x"
		case types.TodoSkipped:
			marker = "-"
		}
		fmt.Fprintf(&sb, "[%s] %s", marker, todo.Content)
		if todo.Reasoning != "" {
			fmt.Fprintf(&sb, " (%s)", todo.Reasoning)
		}
		sb.WriteString("\n")
	}
	s.events.PublishMessage("plan", sb.String(), types.RoleNarration)
}
