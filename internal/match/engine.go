// internal/match/engine.go
//
// Match engine for one play session.
// Responsibilities:
//   - Deal boards level by level through a BoardBuilder.
//   - Sequence card picks (at most two face up, unresolved).
//   - Resolve selections: mismatch flip-back, hazard explosion, powerups, matches.
//   - Count down the level timer and fail on timeout.
//   - Award each level exactly once and credit coins to the Wallet.
//
// Notes:
//   - An Engine is not safe for concurrent use. The session clock owns it and
//     feeds ticks, deadlines and user intents from a single goroutine.
//   - Invalid intents (picking while resolving, advancing while playing, ...)
//     are ignored: Pick returns false, the other operations ErrInvalidTransition.
package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/lemonparty/internal/deck"
	"github.com/robalobadob/lemonparty/internal/level"
)

var (
	// ErrInvalidTransition is returned when an operation is not valid in the
	// current phase. Callers treat it as a no-op.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrNoWallet is returned when a consumable is used on an engine
	// without a Wallet.
	ErrNoWallet = errors.New("no wallet attached")
)

// BoardBuilder deals a board for a level. *deck.Builder implements it.
type BoardBuilder interface {
	Build(cfg level.Config) (*deck.Board, error)
}

// Wallet is the slice of the economy ledger the engine touches.
type Wallet interface {
	// Credit adds level-clear coins.
	Credit(ctx context.Context, amount int) error
	// Consume spends one inventory use of p, failing when none are left.
	Consume(ctx context.Context, p level.Powerup) error
}

// Options configures a new Engine. Catalog is required.
type Options struct {
	Catalog *level.Catalog
	Builder BoardBuilder     // defaults to a time-seeded deck.Builder
	Wallet  Wallet           // optional; without it no coins are paid
	Now     func() time.Time // defaults to time.Now
}

// Engine holds the whole mutable state of a session.
type Engine struct {
	catalog *level.Catalog
	builder BoardBuilder
	wallet  Wallet
	now     func() time.Time

	phase      Phase
	levelIdx   int
	cfg        level.Config
	board      *deck.Board
	selection  []int
	moves      int
	matched    int
	target     int
	timeLeft   int
	totalScore int
	awarded    bool
	peeking    bool
	reason     FailReason
	reward     *Reward

	seq       uint64
	pending   []*Deferred
	revealEnd *Deferred
	events    []Event
}

// New constructs an idle Engine.
func New(opts Options) *Engine {
	if opts.Builder == nil {
		opts.Builder = deck.NewBuilder(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		catalog: opts.Catalog,
		builder: opts.Builder,
		wallet:  opts.Wallet,
		now:     opts.Now,
		phase:   PhaseIdle,
	}
}

// Phase reports the current phase.
func (e *Engine) Phase() Phase { return e.phase }

// Ticking reports whether the level countdown is running.
// It stops once the level has been awarded.
func (e *Engine) Ticking() bool { return e.phase == PhasePlaying && !e.awarded }

// Start begins a new run from level 1 (restartSession).
// Valid from idle, game over and won.
func (e *Engine) Start(ctx context.Context) error {
	switch e.phase {
	case PhaseIdle, PhaseGameOver, PhaseWon:
	default:
		return ErrInvalidTransition
	}
	if err := e.startLevel(0); err != nil {
		return err
	}
	e.totalScore = 0
	return nil
}

// AdvanceLevel deals the next level. Valid only from level complete.
func (e *Engine) AdvanceLevel(ctx context.Context) error {
	if e.phase != PhaseLevelComplete {
		return ErrInvalidTransition
	}
	return e.startLevel(e.levelIdx + 1)
}

// ReturnToIdle closes a finished run, typically after its score was recorded.
func (e *Engine) ReturnToIdle() error {
	if e.phase != PhaseGameOver && e.phase != PhaseWon {
		return ErrInvalidTransition
	}
	e.phase = PhaseIdle
	e.emit(Event{Kind: EventIdle})
	return nil
}

func (e *Engine) startLevel(idx int) error {
	cfg := e.catalog.At(idx)
	board, err := e.builder.Build(cfg)
	if err != nil {
		return fmt.Errorf("deal level %d: %w", idx+1, err)
	}
	e.cancelPending()
	e.levelIdx = idx
	e.cfg = cfg
	e.board = board
	e.selection = nil
	e.moves = 0
	e.matched = 0
	e.target = cfg.TargetPairs()
	e.timeLeft = cfg.TimeLimit
	e.awarded = false
	e.peeking = false
	e.revealEnd = nil
	e.reason = ""
	e.reward = nil
	e.phase = PhasePlaying
	e.emit(Event{Kind: EventLevelStarted, Seconds: e.timeLeft})
	return nil
}

// Pick flips a card. It reports whether the pick was accepted; rejected
// picks leave the state untouched.
func (e *Engine) Pick(ctx context.Context, id int) bool {
	if e.phase != PhasePlaying || e.peeking || len(e.selection) >= 2 {
		return false
	}
	c := e.board.Card(id)
	if c == nil || c.FaceUp || c.Matched {
		return false
	}
	c.FaceUp = true
	e.selection = append(e.selection, id)
	e.emit(Event{Kind: EventFlipped, Cards: []int{id}})
	if len(e.selection) == 2 {
		e.resolve(ctx)
	}
	return true
}

// resolve settles a full selection. The buffer stays full until the
// deferred outcome fires, which keeps further picks blocked.
func (e *Engine) resolve(ctx context.Context) {
	a, b := e.board.Card(e.selection[0]), e.board.Card(e.selection[1])
	ids := []int{a.ID, b.ID}
	e.moves++

	if a.Token != b.Token {
		e.emit(Event{Kind: EventMismatch, Cards: ids})
		e.schedule(FlipBackDelay, "flip-back", func(ctx context.Context) {
			for _, id := range ids {
				if c := e.board.Card(id); c != nil && !c.Matched {
					c.FaceUp = false
				}
			}
			e.selection = nil
			e.emit(Event{Kind: EventFlippedBack, Cards: ids})
		})
		return
	}

	switch a.Category {
	case deck.CategoryHazard:
		// Mines are only safe once every required pair is cleared.
		if e.matched < e.target {
			e.emit(Event{Kind: EventHazard, Cards: ids})
			e.schedule(HazardDelay, "hazard", func(ctx context.Context) {
				e.fail(FailHazard)
			})
			return
		}
	case deck.CategoryPowerup:
		e.activate(ctx, a.Powerup, AutoMatchDelay)
	}

	e.schedule(MatchDelay, "match", func(ctx context.Context) {
		for _, id := range ids {
			c := e.board.Card(id)
			c.Matched, c.FaceUp = true, true
		}
		e.matched++
		e.selection = nil
		e.emit(Event{Kind: EventMatched, Cards: ids})
		e.checkWin(ctx)
	})
}

// Tick advances the countdown by one second.
func (e *Engine) Tick(ctx context.Context) {
	if !e.Ticking() {
		return
	}
	e.timeLeft--
	if e.timeLeft <= 0 {
		e.timeLeft = 0
		e.emit(Event{Kind: EventTick, Seconds: 0, Urgent: true})
		e.fail(FailTimeout)
		return
	}
	e.emit(Event{Kind: EventTick, Seconds: e.timeLeft, Urgent: e.timeLeft <= UrgencySeconds})
}

// checkWin awards the level the first time the matched counter reaches
// the target. Later calls for the same level are no-ops.
func (e *Engine) checkWin(ctx context.Context) {
	if e.phase != PhasePlaying || e.awarded || e.matched < e.target {
		return
	}
	e.awarded = true
	n := e.levelIdx + 1
	r := Reward{
		Level: n,
		Score: LevelBaseScore + TimeScoreFactor*e.timeLeft,
		Coins: CoinsPerLevel * n,
	}
	e.totalScore += r.Score
	e.reward = &r
	if e.wallet != nil && r.Coins > 0 {
		if err := e.wallet.Credit(ctx, r.Coins); err != nil {
			log.Warn().Err(err).Int("level", n).Int("coins", r.Coins).Msg("credit level reward")
		}
	}
	e.emit(Event{Kind: EventLevelCleared, Reward: &r})

	last := e.catalog.IsLast(e.levelIdx)
	e.schedule(LevelEndDelay, "level-end", func(ctx context.Context) {
		if last {
			e.leave(PhaseWon)
			e.emit(Event{Kind: EventWon, Reward: &r})
			return
		}
		e.leave(PhaseLevelComplete)
		e.emit(Event{Kind: EventLevelComplete, Reward: &r})
	})
}

func (e *Engine) fail(reason FailReason) {
	if e.phase != PhasePlaying {
		return
	}
	e.reason = reason
	e.leave(PhaseGameOver)
	e.emit(Event{Kind: EventGameOver, Reason: reason})
}

// leave exits PhasePlaying, cancelling every deferred action so nothing
// fires against a finished or rebuilt board.
func (e *Engine) leave(p Phase) {
	e.cancelPending()
	e.revealEnd = nil
	if e.peeking {
		e.setPeeking(false)
	}
	e.phase = p
}

func (e *Engine) emit(ev Event) {
	ev.Level = e.levelIdx + 1
	e.events = append(e.events, ev)
}

// Events drains the events emitted since the last call.
func (e *Engine) Events() []Event {
	out := e.events
	e.events = nil
	return out
}

// Result summarises the run for the leaderboard.
func (e *Engine) Result() Result {
	return Result{TotalScore: e.totalScore, Moves: e.moves, Level: e.levelIdx + 1}
}

// Snapshot copies the state, hiding the faces of concealed cards.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Phase:      e.phase,
		Level:      e.levelIdx + 1,
		Selection:  append([]int{}, e.selection...),
		Moves:      e.moves,
		Matched:    e.matched,
		Target:     e.target,
		TimeLeft:   e.timeLeft,
		Urgent:     e.phase == PhasePlaying && e.timeLeft <= UrgencySeconds,
		Peeking:    e.peeking,
		TotalScore: e.totalScore,
		Reason:     e.reason,
		Cards:      []CardView{},
	}
	if e.reward != nil {
		r := *e.reward
		s.Reward = &r
	}
	if e.board == nil {
		return s
	}
	s.Rows, s.Cols = e.board.Rows, e.board.Cols
	for _, c := range e.board.Cards {
		v := CardView{ID: c.ID, FaceUp: c.FaceUp, Matched: c.Matched, Peeking: c.Peeking}
		if !c.Hidden() {
			v.Category, v.Token, v.Powerup = c.Category, c.Token, c.Powerup
		}
		s.Cards = append(s.Cards, v)
	}
	return s
}
