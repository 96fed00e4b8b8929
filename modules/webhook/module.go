// Package webhook provides an observer that forwards bus events to an HTTP
// endpoint as JSON. Delivery is handed off through a bounded queue so the
// synchronous bus fan-out is never held hostage by a slow receiver; when the
// queue is full the oldest pending event is dropped.
package webhook

import (
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vk/runflowgo/internal/event"
	"github.com/vk/runflowgo/internal/registry"
)

const (
	queueSize      = 256
	requestTimeout = 10 * time.Second
)

// Module implements the registry.Module interface for this package.
type Module struct {
	url    string
	logger *slog.Logger
}

// NewModule creates the webhook module targeting the given URL. A nil
// logger falls back to the default global logger.
func NewModule(url string, logger *slog.Logger) *Module {
	if logger == nil {
		logger = slog.Default()
	}
	return &Module{url: url, logger: logger}
}

// Register registers the webhook observer with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterObserver(newObserver(m.url, m.logger))
}

// envelope is the JSON body posted for each event.
type envelope struct {
	Kind    string      `json:"kind"`
	RunID   string      `json:"run_id"`
	At      time.Time   `json:"at"`
	Payload event.Event `json:"payload"`
}

type observer struct {
	url    string
	logger *slog.Logger
	client *resty.Client
	queue  chan event.Event
	done   chan struct{}
}

func newObserver(url string, logger *slog.Logger) *observer {
	return &observer{
		url:    url,
		logger: logger,
		client: resty.New().SetTimeout(requestTimeout).SetRetryCount(2),
	}
}

// Attach subscribes to the full event stream, starts the sender goroutine,
// and returns the detach function.
func (o *observer) Attach(bus *event.Bus) func() {
	o.queue = make(chan event.Event, queueSize)
	o.done = make(chan struct{})
	go o.sender()

	sub := bus.SubscribeAll(o.enqueue)
	return func() {
		bus.Unsubscribe(sub)
		close(o.done)
	}
}

// enqueue hands an event to the sender without blocking the bus. When the
// queue is full it drops one stale event and retries once.
func (o *observer) enqueue(e event.Event) {
	select {
	case o.queue <- e:
		return
	default:
	}
	select {
	case <-o.queue:
	default:
	}
	select {
	case o.queue <- e:
	default:
		o.logger.Warn("Webhook queue full; event dropped.", "kind", e.Kind())
	}
}

// sender is the single goroutine posting queued events in order.
func (o *observer) sender() {
	for {
		select {
		case e := <-o.queue:
			o.post(e)
		case <-o.done:
			return
		}
	}
}

func (o *observer) post(e event.Event) {
	body := envelope{
		Kind:    string(e.Kind()),
		RunID:   e.EventRunID(),
		At:      e.OccurredAt(),
		Payload: e,
	}
	resp, err := o.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(o.url)
	if err != nil {
		o.logger.Warn("Webhook delivery failed.", "kind", e.Kind(), "error", err)
		return
	}
	if resp.IsError() {
		o.logger.Warn("Webhook endpoint rejected event.", "kind", e.Kind(), "status", resp.StatusCode())
	}
}
