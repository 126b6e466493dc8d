package engine

import (
	"github.com/google/uuid"
)

// pushEventLocked prepends an event to the log and trims it to the
// configured cap. Newest events always sit at index 0.
func (e *Engine) pushEventLocked(kind EventKind, text string) {
	ev := Event{
		ID:   uuid.NewString(),
		Ts:   e.clock.Now(),
		Kind: kind,
		Text: text,
	}
	e.events = append([]Event{ev}, e.events...)
	if bound := e.cfg.eventCap(); len(e.events) > bound {
		e.events = e.events[:bound]
	}
}

// PushEvent appends a caller-supplied event, for annotations that originate
// outside the engine's own mutations (e.g. oracle spawns). It follows the
// same bound and ordering as engine events but does not persist on its own.
func (e *Engine) PushEvent(kind EventKind, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pushEventLocked(kind, text)
}

// RecentEvents returns up to limit events, newest first. A non-positive
// limit returns the whole log.
func (e *Engine) RecentEvents(limit int) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Event, n)
	copy(out, e.events[:n])
	return out
}
