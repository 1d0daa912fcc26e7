package events

import "sync"

// Recorder retains the most recent events in a bounded ring so they can be
// inspected after the fact, e.g. by RPC queries or tests.
type Recorder struct {
	mu       sync.Mutex
	capacity int
	buf      []Event
}

// NewRecorder creates a recorder keeping at most capacity events.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = 256
	}
	return &Recorder{capacity: capacity}
}

// Emit appends the event, evicting the oldest entry when full.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf) == r.capacity {
		copy(r.buf, r.buf[1:])
		r.buf[len(r.buf)-1] = evt
		return
	}
	r.buf = append(r.buf, evt)
}

// Events returns the retained events, oldest first.
func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.buf))
	copy(out, r.buf)
	return out
}

// Multi fans a single emission out to several emitters.
type Multi []Emitter

// Emit implements the Emitter interface.
func (m Multi) Emit(evt Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(evt)
		}
	}
}
