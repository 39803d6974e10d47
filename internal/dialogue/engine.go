// Package dialogue plays scripted dialogue one line at a time.
//
// The engine is a two-state machine. Idle becomes Playing on Start; each
// Advance shows the next line; advancing past the last line returns to Idle
// and fires the session's completion callback exactly once.
package dialogue

import (
	"fmt"

	"github.com/starford/ithaca/internal/apperr"
	"github.com/starford/ithaca/internal/catalog"
	"github.com/starford/ithaca/internal/models"
	"github.com/starford/ithaca/internal/present"
)

type session struct {
	key        string
	lines      []models.Line
	index      int
	onComplete func()
}

// Engine holds at most one session. It is not safe for concurrent use.
type Engine struct {
	catalogs *catalog.Holder
	sink     present.Sink
	cur      *session
}

// New creates an idle engine.
func New(catalogs *catalog.Holder, sink present.Sink) *Engine {
	return &Engine{catalogs: catalogs, sink: sink}
}

// Start begins script key from its first line. Any session in progress is
// abandoned and its callback never runs. An unknown key leaves the engine
// untouched.
func (e *Engine) Start(key string) error {
	lines, ok := e.catalogs.Current().Script(key)
	if !ok {
		return fmt.Errorf("dialogue: start %q: %w", key, apperr.ErrUnknownScript)
	}
	e.cur = &session{key: key, lines: lines}
	e.emitLine()
	return nil
}

// Play starts key and registers onComplete for it.
func (e *Engine) Play(key string, onComplete func()) error {
	if err := e.Start(key); err != nil {
		return err
	}
	e.SetOnComplete(onComplete)
	return nil
}

// SetOnComplete registers fn for the session in progress, replacing any
// earlier registration. It does nothing while idle.
func (e *Engine) SetOnComplete(fn func()) {
	if e.cur == nil {
		return
	}
	e.cur.onComplete = fn
}

// Advance moves to the next line. Past the last line the engine goes idle
// and runs the completion callback synchronously. It reports false when
// there was no session to advance.
func (e *Engine) Advance() bool {
	s := e.cur
	if s == nil {
		return false
	}
	s.index++
	if s.index < len(s.lines) {
		e.emitLine()
		return true
	}

	// Clear first: the callback may start the next script.
	e.cur = nil
	fn := s.onComplete
	s.onComplete = nil
	e.sink.Emit(present.Event{Kind: present.KindStoryComplete, Data: present.StoryComplete{Script: s.key}})
	if fn != nil {
		fn()
	}
	return true
}

// Active reports whether a session is playing.
func (e *Engine) Active() bool {
	return e.cur != nil
}

// Current returns the line on screen.
func (e *Engine) Current() (present.DialogueLine, bool) {
	if e.cur == nil {
		return present.DialogueLine{}, false
	}
	return e.line(), true
}

func (e *Engine) line() present.DialogueLine {
	l := e.cur.lines[e.cur.index]
	return present.DialogueLine{
		Script:  e.cur.key,
		Index:   e.cur.index,
		Speaker: l.Speaker,
		Text:    l.Text,
		Effect:  l.Effect,
	}
}

func (e *Engine) emitLine() {
	e.sink.Emit(present.Event{Kind: present.KindDialogueLine, Data: e.line()})
}
