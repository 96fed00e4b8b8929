// Package event implements the typed publish/subscribe bus at the center of
// the orchestration core. Producers emit immutable, kind-tagged events; any
// number of observers subscribe by kind or to the whole stream. The bus keeps
// a bounded ring of recent events for inspection and delivers synchronously
// in the emitting goroutine, so handlers must be fast or hand off their work.
package event
