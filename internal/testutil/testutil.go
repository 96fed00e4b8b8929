// Package testutil provides small helpers shared by the package tests.
package testutil

import (
	"bytes"
	"log/slog"
	"sync"

	"github.com/vk/runflowgo/internal/event"
)

// SafeBuffer is a goroutine-safe bytes.Buffer for capturing log output in
// tests where the code under test logs from multiple goroutines.
type SafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns the buffered contents.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewLogger returns a debug-level text logger writing into the returned buffer.
func NewLogger() (*slog.Logger, *SafeBuffer) {
	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, buf
}

// Recorder captures every event emitted on a bus, in emission order.
type Recorder struct {
	mu     sync.Mutex
	events []event.Event
}

// Attach subscribes the recorder to all kinds and returns the detach function.
func (r *Recorder) Attach(bus *event.Bus) func() {
	sub := bus.SubscribeAll(func(e event.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	})
	return func() { bus.Unsubscribe(sub) }
}

// Events returns a copy of the captured events in emission order.
func (r *Recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kind of each captured event, in emission order.
func (r *Recorder) Kinds() []event.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Kind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind())
	}
	return out
}

// OfKind returns the captured events of one kind, in emission order.
func (r *Recorder) OfKind(kind event.Kind) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Event
	for _, e := range r.events {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}
