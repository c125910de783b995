package trace

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/covera-health/covera/internal/model"
)

// Recorder keeps the reasoning trace of each answered question in a bounded
// ring buffer. Writes are append-only; a closed trace is never mutated and
// is exposed read-only by id.
type Recorder struct {
	mu       sync.RWMutex
	traces   map[string]*model.Trace
	order    []string // insertion order for eviction
	capacity int
}

// NewRecorder creates a recorder retaining up to capacity closed traces.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Recorder{
		traces:   make(map[string]*model.Trace),
		capacity: capacity,
	}
}

// Builder accumulates steps for one in-flight request. It is not shared
// across goroutines.
type Builder struct {
	recorder *Recorder
	trace    model.Trace
	closed   bool
	last     time.Time
}

// Begin opens a trace for one question and returns its builder. Each call
// yields a fresh, distinct trace id.
func (r *Recorder) Begin(question string) *Builder {
	now := time.Now().UTC()
	return &Builder{
		recorder: r,
		trace: model.Trace{
			ID:        uuid.NewString(),
			Question:  question,
			StartedAt: now,
		},
		last: now,
	}
}

// ID returns the trace id, available before the trace closes so it can be
// embedded in the answer.
func (b *Builder) ID() string { return b.trace.ID }

// Step appends one reasoning step with input and output summaries.
func (b *Builder) Step(name, input, output string) {
	if b.closed {
		return
	}
	now := time.Now().UTC()
	b.trace.Steps = append(b.trace.Steps, model.TraceStep{
		Step:     name,
		Input:    truncate(input, 300),
		Output:   truncate(output, 300),
		Duration: now.Sub(b.last),
		At:       now,
	})
	b.last = now
}

// Close freezes the trace and stores it. Further Step calls are ignored.
func (b *Builder) Close() {
	if b.closed {
		return
	}
	b.closed = true
	b.trace.ClosedAt = time.Now().UTC()
	b.recorder.store(&b.trace)
}

// Discard drops the trace without storing it, for cancelled requests whose
// partial work must never surface.
func (b *Builder) Discard() {
	b.closed = true
}

// Get returns a copy of the closed trace by id.
func (r *Recorder) Get(id string) (model.Trace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.traces[id]
	if !ok {
		return model.Trace{}, false
	}
	out := *t
	out.Steps = append([]model.TraceStep(nil), t.Steps...)
	return out, true
}

// Len reports the number of retained traces.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.traces)
}

func (r *Recorder) store(t *model.Trace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traces[t.ID] = t
	r.order = append(r.order, t.ID)
	for len(r.order) > r.capacity {
		evict := r.order[0]
		r.order = r.order[1:]
		delete(r.traces, evict)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
