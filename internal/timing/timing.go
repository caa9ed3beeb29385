// Package timing records how long each phase of a reconciliation run takes.
package timing

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// Timer tracks durations of named phases.
type Timer struct {
	start  time.Time
	last   time.Time
	phases []Phase
	now    func() time.Time
}

// Phase represents a timed phase with name and duration.
type Phase struct {
	Name     string
	Duration time.Duration
}

// New creates a new Timer starting from now.
func New() *Timer {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Timer {
	start := now()
	return &Timer{start: start, last: start, now: now}
}

// Mark records a named phase ending now.
// Duration is time since the previous mark (or since start for the first).
func (t *Timer) Mark(name string) {
	now := t.now()
	t.phases = append(t.phases, Phase{Name: name, Duration: now.Sub(t.last)})
	t.last = now
}

// Total returns the elapsed time since timer creation.
func (t *Timer) Total() time.Duration {
	return t.now().Sub(t.start)
}

// Phases returns all recorded phases.
func (t *Timer) Phases() []Phase {
	return t.phases
}

// Fields returns one duration field per phase plus the total, for logging.
func (t *Timer) Fields() []zap.Field {
	fields := make([]zap.Field, 0, len(t.phases)+1)
	for _, p := range t.phases {
		fields = append(fields, zap.Duration("phase_"+p.Name, p.Duration))
	}
	return append(fields, zap.Duration("total", t.Total()))
}

// Report prints a timing report to the given writer.
func (t *Timer) Report(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "=== Reconcile Timing ===")
	for _, p := range t.phases {
		fmt.Fprintf(w, "  %-12s %s\n", p.Name+":", formatDuration(p.Duration))
	}
	fmt.Fprintf(w, "  %-12s %s\n", "TOTAL:", formatDuration(t.Total()))
	fmt.Fprintln(w, "========================")
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
