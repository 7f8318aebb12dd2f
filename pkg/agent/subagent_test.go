package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/nxtscape/webpilot/pkg/a11y"
	"github.com/nxtscape/webpilot/pkg/browser"
	"github.com/nxtscape/webpilot/pkg/bus"
	"github.com/nxtscape/webpilot/pkg/llm"
	"github.com/nxtscape/webpilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider pops one canned response per Complete call and records
// every prompt it was sent.
type scriptedProvider struct {
	mu         sync.Mutex
	responses  []string
	streamText string
	prompts    [][]*types.Message
}

func (p *scriptedProvider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.prompts = append(p.prompts, messages)
	if len(p.responses) == 0 {
		return nil, fmt.Errorf("no scripted response left")
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return types.NewAssistantMessage(resp), nil
}

func (p *scriptedProvider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	ch := make(chan *llm.StreamChunk, 8)
	// Two deltas so upsert accumulation is observable.
	half := len(p.streamText) / 2
	ch <- &llm.StreamChunk{Content: p.streamText[:half], Role: "assistant"}
	ch <- &llm.StreamChunk{Content: p.streamText[half:]}
	ch <- &llm.StreamChunk{Finished: true}
	close(ch)
	return ch, nil
}

func (p *scriptedProvider) GetModelInfo() *types.ModelInfo { return &types.ModelInfo{Name: "scripted"} }
func (p *scriptedProvider) GetModel() string               { return "scripted" }
func (p *scriptedProvider) GetBaseURL() string             { return "" }

// fakeDriver records interactions and serves a fixed page snapshot.
type fakeDriver struct {
	mu        sync.Mutex
	state     *browser.State
	navigated []string
	clicked   []int
	typed     map[int]string
}

func newFakeDriver() *fakeDriver {
	state := &browser.State{
		URL:   "https://shop.test",
		Title: "Shop",
		ClickableElements: []browser.Element{
			{Index: 3, Kind: browser.KindClickable, Tag: "button", Text: "Add to cart"},
		},
		TypeableElements: []browser.Element{
			{Index: 7, Kind: browser.KindTypeable, Tag: "input", Text: "Search"},
		},
	}
	state.RenderListings()
	return &fakeDriver{state: state, typed: make(map[int]string)}
}

func (d *fakeDriver) GetState(ctx context.Context) (*browser.State, error) {
	return d.state, nil
}

func (d *fakeDriver) GetAccessibilityTree(ctx context.Context) (*a11y.RawTree, error) {
	return &a11y.RawTree{}, nil
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigated = append(d.navigated, url)
	return nil
}

func (d *fakeDriver) Click(ctx context.Context, index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clicked = append(d.clicked, index)
	return nil
}

func (d *fakeDriver) Type(ctx context.Context, index int, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.typed[index] = text
	return nil
}

func (d *fakeDriver) ExtractText(ctx context.Context, maxLength int) (string, error) {
	return "page text", nil
}

func (d *fakeDriver) OpenTab(ctx context.Context, url string) (browser.Tab, error) {
	return nil, fmt.Errorf("not supported")
}

// collect subscribes and gathers every published event.
func collect(b *bus.Bus) *[]*types.Event {
	var events []*types.Event
	var mu sync.Mutex
	b.Subscribe(func(e *types.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})
	return &events
}

func lastStatus(events []*types.Event) *types.ExecutionStatusEvent {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].IsExecutionStatus() {
			return events[i].ExecutionStatus
		}
	}
	return nil
}

func TestRunHappyPath(t *testing.T) {
	driver := newFakeDriver()
	provider := &scriptedProvider{
		responses: []string{
			`{"steps": ["open the shop", "add milk to the cart"]}`,
			`{"action": "navigate", "url": "https://shop.test/milk", "reasoning": "opening the shop"}`,
			`{"action": "click", "element": "add to cart button", "reasoning": "adding milk"}`,
			`{"found": true, "index": 3, "confidence": "high", "reasoning": "matches the description"}`,
			`{"isComplete": true, "reasoning": "item is in the cart", "confidence": "high"}`,
		},
		streamText: "Milk was added to the cart.",
	}
	events := bus.New()
	log := collect(events)

	sub := New(driver, provider, events)
	err := sub.Run(context.Background(), "buy milk")
	require.NoError(t, err)

	// All scripted LLM calls were consumed in order.
	assert.Empty(t, provider.responses)

	assert.Equal(t, []string{"https://shop.test/milk"}, driver.navigated)
	assert.Equal(t, []int{3}, driver.clicked)

	status := lastStatus(*log)
	require.NotNil(t, status)
	assert.Equal(t, types.StatusDone, status.Status)

	// Every todo ended terminal.
	for _, todo := range sub.todos.All() {
		assert.Equal(t, types.TodoDone, todo.Status)
	}
}

func TestRunPublishesRunningFirst(t *testing.T) {
	driver := newFakeDriver()
	provider := &scriptedProvider{
		responses:  []string{`{"steps": ["look"]}`, `{"action": "note", "reasoning": "looked"}`, `{"isComplete": true, "reasoning": "done", "confidence": "high"}`},
		streamText: "Done.",
	}
	events := bus.New()
	log := collect(events)

	require.NoError(t, New(driver, provider, events).Run(context.Background(), "look around"))

	evs := *log
	require.NotEmpty(t, evs)
	require.True(t, evs[0].IsExecutionStatus())
	assert.Equal(t, types.StatusRunning, evs[0].ExecutionStatus.Status)
}

func TestRunConsecutiveSkipsFail(t *testing.T) {
	driver := newFakeDriver()
	provider := &scriptedProvider{
		responses: []string{
			`{"steps": ["a", "b", "c"]}`,
			`{"action": "bogus", "reasoning": "?"}`,
			`{"action": "bogus", "reasoning": "?"}`,
		},
	}
	events := bus.New()
	log := collect(events)

	require.NoError(t, New(driver, provider, events).Run(context.Background(), "task"))

	status := lastStatus(*log)
	require.NotNil(t, status)
	assert.Equal(t, types.StatusError, status.Status)
	assert.Contains(t, status.Message, "consecutive failed steps")

	// A failing run still narrated the skip reasons on an error message.
	var sawError bool
	for _, e := range *log {
		if e.IsMessage() && e.Message.Role == types.RoleError {
			sawError = true
		}
	}
	assert.True(t, sawError)
}

func TestRunReplansWithSuggestions(t *testing.T) {
	driver := newFakeDriver()
	provider := &scriptedProvider{
		responses: []string{
			`{"steps": ["check the page"]}`,
			`{"action": "note", "reasoning": "looked around"}`,
			`{"isComplete": false, "reasoning": "nothing submitted", "confidence": "high", "suggestions": ["open the checkout page"]}`,
			`{"steps": ["open the checkout page"]}`,
			`{"action": "navigate", "url": "https://shop.test/checkout", "reasoning": "going to checkout"}`,
			`{"isComplete": true, "reasoning": "checkout opened", "confidence": "high"}`,
		},
		streamText: "Checkout page opened.",
	}
	events := bus.New()
	log := collect(events)

	require.NoError(t, New(driver, provider, events).Run(context.Background(), "check out"))

	assert.Equal(t, []string{"https://shop.test/checkout"}, driver.navigated)
	assert.Equal(t, types.StatusDone, lastStatus(*log).Status)

	// The replan prompt carried the validator's suggestion.
	var replanPromptSeen bool
	for _, prompt := range provider.prompts {
		for _, msg := range prompt {
			if strings.Contains(msg.Content, "Address these points") &&
				strings.Contains(msg.Content, "open the checkout page") {
				replanPromptSeen = true
			}
		}
	}
	assert.True(t, replanPromptSeen)
}

func TestRunReplanBoundFails(t *testing.T) {
	driver := newFakeDriver()
	provider := &scriptedProvider{
		responses: []string{
			`{"steps": ["check"]}`,
			`{"action": "note", "reasoning": "looked"}`,
			`{"isComplete": false, "reasoning": "still not done", "confidence": "medium"}`,
		},
	}
	events := bus.New()
	log := collect(events)

	require.NoError(t, New(driver, provider, events, WithMaxReplans(0)).Run(context.Background(), "task"))

	status := lastStatus(*log)
	require.NotNil(t, status)
	assert.Equal(t, types.StatusError, status.Status)
	assert.Contains(t, status.Message, "still not done")
}

func TestRunCancelledContext(t *testing.T) {
	driver := newFakeDriver()
	events := bus.New()
	log := collect(events)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(driver, &scriptedProvider{}, events).Run(ctx, "task")
	require.ErrorIs(t, err, context.Canceled)

	status := lastStatus(*log)
	require.NotNil(t, status)
	assert.Equal(t, types.StatusCancelled, status.Status)
}

func TestRunPublishesPlanUpserts(t *testing.T) {
	driver := newFakeDriver()
	provider := &scriptedProvider{
		responses:  []string{`{"steps": ["look"]}`, `{"action": "note", "reasoning": "looked"}`, `{"isComplete": true, "reasoning": "done", "confidence": "high"}`},
		streamText: "Done.",
	}
	events := bus.New()
	log := collect(events)

	require.NoError(t, New(driver, provider, events).Run(context.Background(), "look"))

	// The checklist is live-edited under one stable message id.
	var planContents []string
	for _, e := range *log {
		if e.IsMessage() && e.Message.MsgID == "plan" {
			planContents = append(planContents, e.Message.Content)
		}
	}
	require.NotEmpty(t, planContents)
	assert.Contains(t, planContents[0], "[ ] look")
	assert.Contains(t, planContents[len(planContents)-1], "[x] look")
}

func TestExternalToolsUnconfigured(t *testing.T) {
	driver := newFakeDriver()
	provider := &scriptedProvider{
		responses: []string{
			`{"steps": ["send the email", "confirm it sent"]}`,
			`{"action": "call_tool", "instanceId": "inst_1", "toolName": "send", "reasoning": "sending"}`,
			`{"action": "call_tool", "instanceId": "inst_1", "toolName": "send", "reasoning": "sending"}`,
		},
	}
	events := bus.New()
	log := collect(events)

	require.NoError(t, New(driver, provider, events).Run(context.Background(), "email"))

	status := lastStatus(*log)
	require.NotNil(t, status)
	assert.Equal(t, types.StatusError, status.Status)
}
