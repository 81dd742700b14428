// Package events publishes loop outcome events to the log, to Prometheus and,
// when configured, to an AMQP exchange.
package events

import (
	"context"
	"log/slog"
	"time"

	"anchord/internal/metrics"
)

// Code identifies an event
type Code string

const (
	ObservingLoopSuccess Code = "observing_loop_success"
	ObservingLoopFailure Code = "observing_loop_failure"
	WriteSuccess         Code = "write_success"
	WriteFailure         Code = "write_failure"
)

// Event is one emitted occurrence
type Event struct {
	Code       Code           `json:"code"`
	Time       time.Time      `json:"time"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// New builds an event stamped with the current time
func New(code Code, attrs map[string]any) Event {
	return Event{Code: code, Time: time.Now().UTC(), Attributes: attrs}
}

// Emitter publishes events. Emitting is best effort and never fails the caller.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// LogEmitter writes events to slog and counts them
type LogEmitter struct{}

// NewLogEmitter creates a LogEmitter
func NewLogEmitter() *LogEmitter {
	return &LogEmitter{}
}

func (e *LogEmitter) Emit(ctx context.Context, event Event) {
	metrics.EventsEmitted.WithLabelValues(string(event.Code)).Inc()

	args := []any{"code", event.Code}
	for k, v := range event.Attributes {
		args = append(args, k, v)
	}
	slog.Debug("Event emitted", args...)
}

// Multi fans an event out to several emitters
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, event Event) {
	for _, e := range m {
		e.Emit(ctx, event)
	}
}

// Nop discards events
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}
