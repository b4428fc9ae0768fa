// internal/match/scheduler.go
//
// Deferred actions: visual delays (flip-back, match confirm, hazard
// explosion, reveal end, level transition) are queued here with a fire
// time instead of detached timers. The session loop calls RunDue when
// NextDeadline passes. Leaving PhasePlaying cancels everything queued.
package match

import (
	"context"
	"time"
)

// Deferred is one queued action.
type Deferred struct {
	Name string
	At   time.Time

	seq       uint64
	run       func(ctx context.Context)
	cancelled bool
}

// Cancel stops the action from firing. Safe to call more than once.
func (d *Deferred) Cancel() { d.cancelled = true }

func (e *Engine) schedule(delay time.Duration, name string, fn func(ctx context.Context)) *Deferred {
	e.seq++
	d := &Deferred{Name: name, At: e.now().Add(delay), seq: e.seq, run: fn}
	e.pending = append(e.pending, d)
	return d
}

func (e *Engine) cancelPending() {
	for _, d := range e.pending {
		d.Cancel()
	}
	e.pending = nil
}

// NextDeadline reports when the earliest live deferred action is due.
func (e *Engine) NextDeadline() (time.Time, bool) {
	var next *Deferred
	for _, d := range e.pending {
		if d.cancelled {
			continue
		}
		if next == nil || d.At.Before(next.At) || (d.At.Equal(next.At) && d.seq < next.seq) {
			next = d
		}
	}
	if next == nil {
		return time.Time{}, false
	}
	return next.At, true
}

// RunDue fires every deferred action whose time has come, earliest first.
// Actions queued while running are fired too if already due.
func (e *Engine) RunDue(ctx context.Context) {
	for {
		d := e.popDue(e.now())
		if d == nil {
			return
		}
		d.run(ctx)
	}
}

// Pending lists live queued actions in the order they were scheduled.
func (e *Engine) Pending() []Deferred {
	out := make([]Deferred, 0, len(e.pending))
	for _, d := range e.pending {
		if !d.cancelled {
			out = append(out, Deferred{Name: d.Name, At: d.At})
		}
	}
	return out
}

func (e *Engine) popDue(now time.Time) *Deferred {
	best := -1
	live := e.pending[:0]
	for _, d := range e.pending {
		if !d.cancelled {
			live = append(live, d)
		}
	}
	e.pending = live
	for i, d := range e.pending {
		if d.At.After(now) {
			continue
		}
		if best < 0 || d.At.Before(e.pending[best].At) || (d.At.Equal(e.pending[best].At) && d.seq < e.pending[best].seq) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	d := e.pending[best]
	e.pending = append(e.pending[:best], e.pending[best+1:]...)
	return d
}
