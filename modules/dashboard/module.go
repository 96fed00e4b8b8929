// Package dashboard provides an observer that streams bus events to a live
// dashboard over socket.io. Like the webhook observer it decouples delivery
// from the synchronous bus fan-out through a bounded queue.
package dashboard

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/runflowgo/internal/event"
	"github.com/vk/runflowgo/internal/registry"
)

const (
	// eventName is the socket.io event every payload is emitted under.
	eventName      = "run_event"
	queueSize      = 256
	connectTimeout = 15 * time.Second
)

// Module implements the registry.Module interface for this package.
type Module struct {
	url                string
	namespace          string
	insecureSkipVerify bool
	logger             *slog.Logger
}

// NewModule creates the dashboard module targeting the given socket.io URL.
// A nil logger falls back to the default global logger.
func NewModule(rawURL, namespace string, logger *slog.Logger) *Module {
	if logger == nil {
		logger = slog.Default()
	}
	return &Module{url: rawURL, namespace: namespace, logger: logger}
}

// Register registers the dashboard observer with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterObserver(&observer{module: m, logger: m.logger})
}

type observer struct {
	module *Module
	logger *slog.Logger
	io     *socket.Socket
	queue  chan event.Event
	done   chan struct{}
}

// Attach connects the socket.io client, subscribes to the full event
// stream, and returns the detach function. A failed connection is logged
// and leaves a no-op observer: the dashboard must never break the host.
func (o *observer) Attach(bus *event.Bus) func() {
	io, err := connect(o.module.url, o.module.namespace, o.module.insecureSkipVerify, o.logger)
	if err != nil {
		o.logger.Warn("Dashboard connection failed; events will not be streamed.", "url", o.module.url, "error", err)
		return func() {}
	}
	o.io = io
	o.queue = make(chan event.Event, queueSize)
	o.done = make(chan struct{})
	go o.sender()

	sub := bus.SubscribeAll(o.enqueue)
	return func() {
		bus.Unsubscribe(sub)
		close(o.done)
		o.io.Disconnect()
	}
}

// enqueue hands an event to the sender without blocking the bus, dropping
// one stale event when the queue is full.
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
		o.logger.Warn("Dashboard queue full; event dropped.", "kind", e.Kind())
	}
}

// sender is the single goroutine emitting queued events in order.
func (o *observer) sender() {
	for {
		select {
		case e := <-o.queue:
			o.emit(e)
		case <-o.done:
			return
		}
	}
}

func (o *observer) emit(e event.Event) {
	payload, err := json.Marshal(map[string]any{
		"kind":    string(e.Kind()),
		"run_id":  e.EventRunID(),
		"at":      e.OccurredAt(),
		"payload": e,
	})
	if err != nil {
		o.logger.Warn("Dashboard payload marshal failed.", "kind", e.Kind(), "error", err)
		return
	}
	o.io.Emit(eventName, string(payload))
}

// connect dials the socket.io server over websocket and waits for the
// connect or connect_error event, bounded by a generous timeout.
func connect(rawURL, namespace string, insecureSkipVerify bool, logger *slog.Logger) (*socket.Socket, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if insecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Dashboard connected.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errs[0].(error)
		connectChan <- err
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return io, nil
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", connectTimeout)
	}
}
