// Package bus provides the process-wide publish/subscribe channel used to
// stream UI-visible state (messages, execution status) from agent components
// to observers.
//
// A Bus is constructed once at process start and passed explicitly to every
// component that reports progress. There is deliberately no package-level
// singleton: tests create as many independent buses as they need.
package bus

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/nxtscape/webpilot/pkg/types"
)

// DefaultBufferSize is the number of events retained for Buffer(). The
// buffer is a bounded ring: once full, the oldest events are evicted.
const DefaultBufferSize = 1000

// Subscriber receives every event published after its registration.
type Subscriber func(*types.Event)

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	bus *Bus
	id  uint64
}

// Unsubscribe removes the subscriber. No events are delivered after it
// returns. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.unsubscribe(s.id)
}

// Bus is an in-process event bus with synchronous, ordered delivery.
type Bus struct {
	mu          sync.Mutex
	subscribers []subscriberEntry
	buffer      []*types.Event
	bufferSize  int
	nextSubID   uint64
	idCounter   uint64
	lastTs      int64
	rng         *rand.Rand
}

type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Option configures a Bus.
type Option func(*Bus)

// WithBufferSize overrides the retained-event ring size.
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// New creates an event bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		bufferSize: DefaultBufferSize,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish stamps the event with a monotonic millisecond timestamp, appends it
// to the buffer, and synchronously invokes every current subscriber in
// subscription order. A panicking subscriber does not prevent delivery to the
// remaining subscribers. Dispatch runs against a snapshot of the subscriber
// list taken at publish time, so a subscriber that itself publishes or
// unsubscribes cannot deadlock the bus.
func (b *Bus) Publish(event *types.Event) {
	b.mu.Lock()
	event.Ts = b.monotonicNowLocked()
	b.buffer = append(b.buffer, event)
	if len(b.buffer) > b.bufferSize {
		b.buffer = b.buffer[len(b.buffer)-b.bufferSize:]
	}
	snapshot := make([]subscriberEntry, len(b.subscribers))
	copy(snapshot, b.subscribers)
	b.mu.Unlock()

	for _, entry := range snapshot {
		dispatch(entry.fn, event)
	}
}

// dispatch invokes one subscriber, isolating panics so one faulty observer
// cannot break delivery to the rest.
func dispatch(fn Subscriber, event *types.Event) {
	defer func() {
		_ = recover()
	}()
	fn(event)
}

// PublishMessage publishes a message-variant event.
func (b *Bus) PublishMessage(msgID, content string, role types.MessageRole) {
	b.Publish(types.NewMessageEvent(msgID, content, role))
}

// PublishExecutionStatus publishes an execution-status-variant event.
func (b *Bus) PublishExecutionStatus(status types.ExecStatus, message string) {
	b.Publish(types.NewExecutionStatusEvent(status, message))
}

// Subscribe registers a callback for all future events. Buffered history is
// not replayed.
func (b *Bus) Subscribe(fn Subscriber) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSubID++
	b.subscribers = append(b.subscribers, subscriberEntry{id: b.nextSubID, fn: fn})
	return &Subscription{bus: b, id: b.nextSubID}
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, entry := range b.subscribers {
		if entry.id == id {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// GenerateID returns a string unique within this process for the given
// prefix, formatted "prefix_<unique>". Uniqueness combines a per-bus counter
// with randomness so ids remain distinct even under concurrent callers.
func (b *Bus) GenerateID(prefix string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	return fmt.Sprintf("%s_%d_%06d", prefix, b.idCounter, b.rng.Intn(1000000))
}

// Buffer returns a copy of the retained events, oldest first.
func (b *Bus) Buffer() []*types.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*types.Event, len(b.buffer))
	copy(out, b.buffer)
	return out
}

// ClearBuffer discards all retained events. Subscribers are unaffected.
func (b *Bus) ClearBuffer() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buffer = nil
}

// monotonicNowLocked returns the current epoch milliseconds, bumped forward
// if the clock has not advanced since the previous publish so timestamps are
// strictly non-decreasing and distinguishable per publisher.
func (b *Bus) monotonicNowLocked() int64 {
	now := time.Now().UnixMilli()
	if now <= b.lastTs {
		now = b.lastTs + 1
	}
	b.lastTs = now
	return now
}
