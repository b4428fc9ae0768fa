// internal/clock/loop.go
//
// Session clock: one goroutine per live session that owns the match
// engine. It multiplexes
//   - the one-second countdown (running only while the engine ticks),
//   - a timer armed for the engine's next deferred action,
//   - user intents sent through Do.
//
// Everything that touches the engine runs on this goroutine, so the engine
// itself needs no locking.
package clock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("clock stopped")

// DefaultInterval is the countdown resolution.
const DefaultInterval = time.Second

// Driver is what the loop drives. *match.Engine implements it.
type Driver interface {
	Tick(ctx context.Context)
	RunDue(ctx context.Context)
	NextDeadline() (time.Time, bool)
	Ticking() bool
}

type command struct {
	fn   func(ctx context.Context)
	done chan struct{}
}

// Loop serialises access to a Driver.
type Loop struct {
	driver   Driver
	interval time.Duration
	after    func(ctx context.Context)
	logger   zerolog.Logger

	cmds     chan command
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Option customises a Loop.
type Option func(*Loop)

// WithInterval overrides the countdown period.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithAfterStep registers a hook run on the loop goroutine after every
// tick, deadline or command.
func WithAfterStep(fn func(ctx context.Context)) Option {
	return func(l *Loop) { l.after = fn }
}

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(lg zerolog.Logger) Option {
	return func(l *Loop) { l.logger = lg }
}

// New builds a loop. Call Run in a goroutine to start it.
func New(d Driver, opts ...Option) *Loop {
	l := &Loop{
		driver:   d,
		interval: DefaultInterval,
		logger:   log.Logger,
		cmds:     make(chan command),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Run drives the loop until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	l.logger.Debug().Dur("interval", l.interval).Msg("clock started")

	tickTimer := time.NewTimer(time.Hour)
	tickTimer.Stop()
	defer tickTimer.Stop()
	dueTimer := time.NewTimer(time.Hour)
	dueTimer.Stop()
	defer dueTimer.Stop()

	// The countdown runs on the loop's own schedule so step can tell
	// whether a second is due no matter which timer woke it.
	var (
		ticking  bool
		nextTick time.Time
	)
	resync := func() {
		if t := l.driver.Ticking(); t != ticking {
			ticking = t
			if t {
				nextTick = time.Now().Add(l.interval)
			}
		}
		tickTimer.Stop()
		if ticking {
			tickTimer.Reset(max(time.Until(nextTick), 0))
		}
		dueTimer.Stop()
		if at, ok := l.driver.NextDeadline(); ok {
			dueTimer.Reset(max(time.Until(at), 0))
		}
		if l.after != nil {
			l.after(ctx)
		}
	}
	// step settles everything due at now. Countdown seconds go first, so a
	// deferred action falling due in the same instant cannot beat a timeout.
	step := func(now time.Time) {
		for ticking && !now.Before(nextTick) {
			l.driver.Tick(ctx)
			nextTick = nextTick.Add(l.interval)
			ticking = l.driver.Ticking()
		}
		l.driver.RunDue(ctx)
	}
	resync()

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug().Msg("clock stopped by context")
			return ctx.Err()
		case <-l.stopCh:
			l.logger.Debug().Msg("clock stopped")
			return nil
		case cmd := <-l.cmds:
			cmd.fn(ctx)
			close(cmd.done)
		case now := <-tickTimer.C:
			step(now)
		case now := <-dueTimer.C:
			step(now)
		}
		resync()
	}
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func(ctx context.Context)) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case l.cmds <- cmd:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// Stop ends Run. Safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// Done is closed when Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }
