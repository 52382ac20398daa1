// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package diag routes diagnostics from the engine to whoever is listening.
// The engine only emits; formatting belongs to the sink.
package diag

import (
	"sync"

	"github.com/rs/zerolog"
)

// Level is the severity of an Event.
type Level int

const (
	Info Level = iota
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	}
	return "unknown"
}

// Event is a single diagnostic.
type Event struct {
	Level   Level
	Message string
	Context map[string]any
}

// Sink receives diagnostics.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Multi fans each event out to every sink in order.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			s.Emit(e)
		}
	})
}

// Collector records events in memory.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Emit records e.
func (c *Collector) Emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Events returns a copy of everything recorded so far.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Messages returns the messages recorded at level.
func (c *Collector) Messages(level Level) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, e := range c.events {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// Reset discards recorded events.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

type zerologSink struct {
	log zerolog.Logger
}

// NewZerolog returns a Sink that writes each event to log. Context entries
// become fields.
func NewZerolog(log zerolog.Logger) Sink {
	return zerologSink{log: log}
}

func (s zerologSink) Emit(e Event) {
	var ev *zerolog.Event
	switch e.Level {
	case Warn:
		ev = s.log.Warn()
	case Error:
		ev = s.log.Error()
	default:
		ev = s.log.Info()
	}
	if len(e.Context) > 0 {
		ev = ev.Fields(e.Context)
	}
	ev.Msg(e.Message)
}
