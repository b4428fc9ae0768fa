// internal/game/session.go
//
// A Session is one live game: a match.Engine driven by its own clock.Loop.
// Responsibilities:
//   - Route player intents onto the loop goroutine and return a fresh view.
//   - Drain engine events into a bounded, sequence-numbered log for polling.
//   - Fetch end-of-run flavor text without blocking the loop.
//   - Record finished runs on the leaderboard exactly once.
//
// The engine is only touched from the loop goroutine. Everything readers
// see (view, log, message) is copied out under mu.
package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/lemonparty/internal/clock"
	"github.com/robalobadob/lemonparty/internal/flavor"
	"github.com/robalobadob/lemonparty/internal/leaderboard"
	"github.com/robalobadob/lemonparty/internal/level"
	"github.com/robalobadob/lemonparty/internal/match"
)

var (
	// ErrSessionNotFound covers unknown ids and sessions owned by someone else.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed is returned once the session loop has stopped.
	ErrSessionClosed = errors.New("session closed")
	// ErrNotFinished is returned when a score is submitted mid-run.
	ErrNotFinished = errors.New("run not finished")
	// ErrNoLeaderboard is returned when scores cannot be recorded.
	ErrNoLeaderboard = errors.New("leaderboard unavailable")
)

// maxLog bounds the per-session event log.
const maxLog = 128

// LoggedEvent is an engine event with its position in the session log.
type LoggedEvent struct {
	Seq int `json:"seq"`
	match.Event
}

// View is what clients poll.
type View struct {
	ID string `json:"id"`
	match.Snapshot
	Message string `json:"message,omitempty"`
	Seq     int    `json:"seq"`
}

// Session owns one engine and its loop.
type Session struct {
	ID    string
	Owner string

	engine *match.Engine
	loop   *clock.Loop
	cancel context.CancelFunc
	board  *leaderboard.Board
	teller *flavor.Teller
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	view     match.Snapshot
	message  string
	run      int
	seq      int
	log      []LoggedEvent
	lastSeen time.Time
}

// View returns the latest snapshot. It never blocks on the loop.
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{ID: s.ID, Snapshot: s.view, Message: s.message, Seq: s.seq}
}

// EventsSince returns logged events with Seq greater than since.
// Events older than the log window are gone.
func (s *Session) EventsSince(since int) []LoggedEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []LoggedEvent{}
	for _, ev := range s.log {
		if ev.Seq > since {
			out = append(out, ev)
		}
	}
	return out
}

// LastSeen is when a player last acted on the session.
func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// Pick flips a card. The bool reports whether the pick was accepted;
// rejected picks are not errors.
func (s *Session) Pick(ctx context.Context, id int) (bool, View, error) {
	var ok bool
	v, err := s.do(ctx, func(ctx context.Context) error {
		ok = s.engine.Pick(ctx, id)
		return nil
	})
	return ok, v, err
}

// UsePowerup spends one consumable from the owner's inventory.
func (s *Session) UsePowerup(ctx context.Context, p level.Powerup) (View, error) {
	return s.do(ctx, func(ctx context.Context) error {
		return s.engine.UseConsumable(ctx, p)
	})
}

// Advance deals the next level after a level complete.
func (s *Session) Advance(ctx context.Context) (View, error) {
	return s.do(ctx, func(ctx context.Context) error {
		return s.engine.AdvanceLevel(ctx)
	})
}

// Restart begins a fresh run at level 1.
func (s *Session) Restart(ctx context.Context) (View, error) {
	return s.do(ctx, func(ctx context.Context) error {
		return s.engine.Start(ctx)
	})
}

// SubmitScore records a finished run under name and returns the session
// to idle. A second submit for the same run fails with ErrNotFinished.
func (s *Session) SubmitScore(ctx context.Context, name string) (leaderboard.Entry, []leaderboard.Entry, error) {
	if s.board == nil {
		return leaderboard.Entry{}, nil, ErrNoLeaderboard
	}
	var (
		entry   leaderboard.Entry
		entries []leaderboard.Entry
	)
	// The loop is idle between runs, so holding it across the store write
	// keeps two submits for one run from both landing.
	_, err := s.do(ctx, func(context.Context) error {
		switch s.engine.Phase() {
		case match.PhaseGameOver, match.PhaseWon:
		default:
			return ErrNotFinished
		}
		res := s.engine.Result()
		var err error
		entry, entries, err = s.board.Record(ctx, name, res.TotalScore, res.Moves, res.Level)
		if err != nil {
			return err
		}
		return s.engine.ReturnToIdle()
	})
	if err != nil {
		return leaderboard.Entry{}, nil, err
	}
	return entry, entries, nil
}

// ScoreCheck is the leaderboard value of the finished run and whether it
// would make the table right now.
type ScoreCheck struct {
	Score     int  `json:"score"`
	Qualifies bool `json:"qualifies"`
}

// CheckScore previews SubmitScore without recording anything.
func (s *Session) CheckScore(ctx context.Context) (ScoreCheck, error) {
	if s.board == nil {
		return ScoreCheck{}, ErrNoLeaderboard
	}
	var res match.Result
	_, err := s.do(ctx, func(context.Context) error {
		switch s.engine.Phase() {
		case match.PhaseGameOver, match.PhaseWon:
		default:
			return ErrNotFinished
		}
		res = s.engine.Result()
		return nil
	})
	if err != nil {
		return ScoreCheck{}, err
	}
	score := leaderboard.Score(res.TotalScore, res.Moves)
	ok, err := s.board.Qualifies(ctx, score)
	if err != nil {
		return ScoreCheck{}, err
	}
	return ScoreCheck{Score: score, Qualifies: ok}, nil
}

// Dismiss closes a finished run without recording it.
func (s *Session) Dismiss(ctx context.Context) (View, error) {
	return s.do(ctx, func(context.Context) error {
		return s.engine.ReturnToIdle()
	})
}

// Close stops the loop and waits for it to exit.
func (s *Session) Close() {
	s.loop.Stop()
	s.cancel()
	<-s.loop.Done()
}

func (s *Session) do(ctx context.Context, fn func(ctx context.Context) error) (View, error) {
	var opErr error
	err := s.loop.Do(ctx, func(lctx context.Context) {
		opErr = fn(lctx)
		s.sync()
	})
	if errors.Is(err, clock.ErrStopped) {
		return View{}, ErrSessionClosed
	}
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
	return s.View(), opErr
}

// sync copies engine state out for readers. Runs on the loop goroutine.
func (s *Session) sync() {
	events := s.engine.Events()
	snap := s.engine.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = snap
	for _, ev := range events {
		s.seq++
		s.log = append(s.log, LoggedEvent{Seq: s.seq, Event: ev})
		s.handle(ev)
	}
	if n := len(s.log) - maxLog; n > 0 {
		s.log = append(s.log[:0:0], s.log[n:]...)
	}
}

// handle reacts to one event. Caller holds mu.
func (s *Session) handle(ev match.Event) {
	switch ev.Kind {
	case match.EventLevelStarted:
		s.run++
		s.message = ""
	case match.EventWon:
		s.tell(true)
	case match.EventGameOver:
		if ev.Reason == match.FailTimeout {
			s.message = flavor.TimeoutMessage
		} else {
			s.tell(false)
		}
	}
	if ev.Kind != match.EventTick {
		s.logger.Debug().Str("event", string(ev.Kind)).Int("level", ev.Level).Msg("session event")
	}
}

// tell fetches flavor text for the current run. Caller holds mu.
func (s *Session) tell(won bool) {
	if s.teller == nil {
		s.message = flavor.Resolve(context.Background(), nil, won)
		return
	}
	run := s.run
	s.teller.Tell(won, func(msg string) {
		s.mu.Lock()
		defer s.mu.Unlock()
		// A restart while the text was in flight makes it stale.
		if s.run == run {
			s.message = msg
		}
	})
}
