package event

import (
	"log/slog"
	"sync"
)

// defaultMaxHistory bounds the ring buffer when no option overrides it.
const defaultMaxHistory = 1000

// Handler receives events from the bus. Handlers run synchronously in the
// emitting goroutine; a handler that needs to block must hand off to its own
// goroutine.
type Handler func(Event)

// Subscription identifies one registered handler so it can be removed later.
type Subscription struct {
	id   int64
	kind Kind
	all  bool
}

type subscriber struct {
	id int64
	fn Handler
}

// Bus is the shared pub/sub broker. A single mutex guards the subscriber
// lists and the history ring; handler fan-out happens on a snapshot taken
// under the lock, so a slow handler never holds the bus itself.
type Bus struct {
	mu      sync.Mutex
	logger  *slog.Logger
	nextID  int64
	byKind  map[Kind][]subscriber
	all     []subscriber
	history []Event
	head    int
	count   int
	max     int
}

// Option configures a Bus.
type Option func(*Bus)

// WithMaxHistory overrides the size of the bounded history ring.
func WithMaxHistory(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.max = n
		}
	}
}

// WithLogger sets the logger used to report recovered handler panics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBus creates an isolated bus instance.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		logger: slog.Default(),
		byKind: make(map[Kind][]subscriber),
		max:    defaultMaxHistory,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.history = make([]Event, b.max)
	return b
}

// Subscribe registers a handler for one event kind. Handlers are invoked in
// registration order.
func (b *Bus) Subscribe(kind Kind, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.byKind[kind] = append(b.byKind[kind], subscriber{id: b.nextID, fn: fn})
	return &Subscription{id: b.nextID, kind: kind}
}

// SubscribeAll registers a handler for every event kind. Subscribe-all
// handlers run after the kind-specific ones for each emission.
func (b *Bus) SubscribeAll(fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.all = append(b.all, subscriber{id: b.nextID, fn: fn})
	return &Subscription{id: b.nextID, all: true}
}

// Unsubscribe removes a previously registered handler. Unknown or already
// removed subscriptions are ignored.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.all {
		b.all = removeSubscriber(b.all, sub.id)
		return
	}
	b.byKind[sub.kind] = removeSubscriber(b.byKind[sub.kind], sub.id)
}

func removeSubscriber(subs []subscriber, id int64) []subscriber {
	for i, s := range subs {
		if s.id == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

// Emit records the event in the history ring and delivers it synchronously:
// first to the kind-specific subscribers in registration order, then to the
// subscribe-all subscribers in registration order. Emit returns only after
// the full fan-out completed in the calling goroutine.
func (b *Bus) Emit(e Event) {
	b.mu.Lock()
	b.history[b.head] = e
	b.head = (b.head + 1) % b.max
	if b.count < b.max {
		b.count++
	}
	snapshot := make([]subscriber, 0, len(b.byKind[e.Kind()])+len(b.all))
	snapshot = append(snapshot, b.byKind[e.Kind()]...)
	snapshot = append(snapshot, b.all...)
	b.mu.Unlock()

	for _, s := range snapshot {
		b.invoke(s, e)
	}
}

// invoke calls one handler, isolating the bus and the remaining subscribers
// from its panics.
func (b *Bus) invoke(s subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event subscriber panicked; continuing fan-out.", "kind", e.Kind(), "panic", r)
		}
	}()
	s.fn(e)
}

// Filter narrows the events returned by History.
type Filter func(Event) bool

// ByKind keeps only events of the given kind.
func ByKind(kind Kind) Filter {
	return func(e Event) bool { return e.Kind() == kind }
}

// ByRunID keeps only events belonging to the given run.
func ByRunID(runID string) Filter {
	return func(e Event) bool { return e.EventRunID() == runID }
}

// History returns the retained events, most recent first, keeping only those
// matching every provided filter. At most maxHistory events are retained, so
// older events fall off the ring as new ones arrive.
func (b *Bus) History(filters ...Filter) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Event, 0, b.count)
	for i := 0; i < b.count; i++ {
		idx := (b.head - 1 - i + b.max*2) % b.max
		e := b.history[idx]
		if matchesAll(e, filters) {
			out = append(out, e)
		}
	}
	return out
}

func matchesAll(e Event, filters []Filter) bool {
	for _, f := range filters {
		if !f(e) {
			return false
		}
	}
	return true
}

var (
	defaultMu  sync.Mutex
	defaultBus *Bus
)

// Default returns the process-wide bus, creating it on first use.
func Default() *Bus {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBus == nil {
		defaultBus = NewBus()
	}
	return defaultBus
}

// ResetDefault discards the process-wide bus so the next Default call builds
// a fresh one. Tests use this to avoid subscriber leakage across cases.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultBus = nil
}
