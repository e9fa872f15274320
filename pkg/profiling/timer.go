// Package profiling records nested timing spans and pprof profiles for a
// single CLI invocation.
package profiling

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Stopper ends a timed span.
type Stopper interface {
	Stop()
}

type span struct {
	name     string
	start    time.Time
	duration time.Duration
	children []*span
	recorder *Recorder
}

func (s *span) Stop() {
	s.recorder.end(s)
}

// Recorder collects spans. The zero value is disabled.
type Recorder struct {
	mu      sync.Mutex
	enabled bool
	root    *span
	stack   []*span
}

var global = &Recorder{}

// Enable turns on the process-wide recorder. Calling it twice is a no-op.
func Enable() {
	global.Enable()
}

// Start opens a span on the process-wide recorder.
func Start(name string) Stopper {
	return global.Start(name)
}

// Summarize writes the process-wide span tree to w.
func Summarize(w io.Writer) {
	global.Summarize(w)
}

// Enable starts recording.
func (r *Recorder) Enable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enabled {
		return
	}
	r.enabled = true
	r.root = &span{name: "total", start: time.Now(), recorder: r}
	r.stack = []*span{r.root}
}

// Start opens a span nested under the innermost open span.
func (r *Recorder) Start(name string) Stopper {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return noop{}
	}
	parent := r.stack[len(r.stack)-1]
	s := &span{name: name, start: time.Now(), recorder: r}
	parent.children = append(parent.children, s)
	r.stack = append(r.stack, s)
	return s
}

func (r *Recorder) end(s *span) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.duration != 0 {
		return
	}
	s.duration = time.Since(s.start)
	for i := len(r.stack) - 1; i > 0; i-- {
		if r.stack[i] == s {
			r.stack = r.stack[:i]
			return
		}
	}
}

// Summarize writes the span tree with each span's share of the total.
func (r *Recorder) Summarize(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return
	}
	total := time.Since(r.root.start)
	fmt.Fprintf(w, "\ntiming (%v)\n", total.Round(100*time.Microsecond))
	for _, child := range r.root.children {
		writeSpan(w, child, 1, total)
	}
}

func writeSpan(w io.Writer, s *span, depth int, total time.Duration) {
	d := s.duration
	if d == 0 {
		d = time.Since(s.start)
	}
	pct := 0.0
	if total > 0 {
		pct = float64(d) / float64(total) * 100
	}
	fmt.Fprintf(w, "%s%s %v (%.1f%%)\n", strings.Repeat("  ", depth), s.name, d.Round(100*time.Microsecond), pct)
	for _, child := range s.children {
		writeSpan(w, child, depth+1, total)
	}
}

type noop struct{}

func (noop) Stop() {}
