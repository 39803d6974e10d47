// Package present is the outward presentation port: the events the core
// emits for a UI to render, and the sinks that deliver them.
package present

import (
	"log/slog"
	"sync"
)

// Kind names an event type. The values double as SSE event names.
type Kind string

const (
	KindFragmentUnlocked      Kind = "fragment.unlocked"
	KindBookSynthesized       Kind = "book.synthesized"
	KindDialogueLine          Kind = "dialogue.line"
	KindStoryComplete         Kind = "story.complete"
	KindLog                   Kind = "log"
	KindNotificationDismissed Kind = "notification.dismissed"
)

// Event is one message to the presentation layer.
type Event struct {
	Kind Kind `json:"type"`
	Data any  `json:"data"`
}

// Notification is a modal message such as an unlock announcement.
type Notification struct {
	Title   string `json:"title"`
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// DialogueLine is the line currently on screen.
type DialogueLine struct {
	Script  string `json:"script"`
	Index   int    `json:"index"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Effect  string `json:"effect,omitempty"`
}

// StoryComplete marks the end of a dialogue script.
type StoryComplete struct {
	Script string `json:"script"`
}

// LogMessage is a toast.
type LogMessage struct {
	Text string `json:"text"`
}

// Sink receives events.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// Multi fans every event out to each sink in order.
type Multi []Sink

// Emit delivers e to every sink.
func (m Multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// LogSink writes events to a structured logger at debug level.
func LogSink(logger *slog.Logger) Sink {
	return SinkFunc(func(e Event) {
		logger.Debug("present: event", slog.String("type", string(e.Kind)), slog.Any("data", e.Data))
	})
}

// Recorder keeps every event it receives. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends e.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event{}, r.events...)
}

// OfKind returns the recorded events of kind k.
func (r *Recorder) OfKind(k Kind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}
