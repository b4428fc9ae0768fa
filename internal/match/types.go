// internal/match/types.go
//
// Core type definitions for the match engine.
// Defines:
//   - Phase: coarse session state (idle/playing/level_complete/game_over/won).
//   - Event: state-change notifications drained by the session loop.
//   - Snapshot: client-facing view of the engine, hiding face-down tokens.
package match

import (
	"time"

	"github.com/robalobadob/lemonparty/internal/deck"
	"github.com/robalobadob/lemonparty/internal/level"
)

// Phase is the engine's state machine position.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhasePlaying       Phase = "playing"
	PhaseLevelComplete Phase = "level_complete"
	PhaseGameOver      Phase = "game_over"
	PhaseWon           Phase = "won"
)

// FailReason says why a session ended in PhaseGameOver.
type FailReason string

const (
	FailHazard  FailReason = "hazard"
	FailTimeout FailReason = "timeout"
)

// Timing and scoring constants.
const (
	FlipBackDelay  = 1000 * time.Millisecond
	MatchDelay     = 200 * time.Millisecond
	HazardDelay    = 800 * time.Millisecond
	AutoMatchDelay = 500 * time.Millisecond
	RevealDuration = 2 * time.Second
	LevelEndDelay  = 1 * time.Second

	TimeBonusSeconds = 20
	UrgencySeconds   = 30

	LevelBaseScore  = 100
	TimeScoreFactor = 5
	CoinsPerLevel   = 10
)

// Reward is what clearing one level pays out.
type Reward struct {
	Level int `json:"level"`
	Score int `json:"score"`
	Coins int `json:"coins"`
}

// EventKind names an Event.
type EventKind string

const (
	EventLevelStarted  EventKind = "level_started"
	EventFlipped       EventKind = "card_flipped"
	EventMismatch      EventKind = "mismatch"
	EventFlippedBack   EventKind = "flipped_back"
	EventMatched       EventKind = "matched"
	EventHazard        EventKind = "hazard_triggered"
	EventPowerup       EventKind = "powerup_activated"
	EventAutoMatched   EventKind = "auto_matched"
	EventRevealEnded   EventKind = "reveal_ended"
	EventTick          EventKind = "tick"
	EventLevelCleared  EventKind = "level_cleared"
	EventLevelComplete EventKind = "level_complete"
	EventWon           EventKind = "won"
	EventGameOver      EventKind = "game_over"
	EventIdle          EventKind = "idle"
)

// Event is one state change. Only the fields relevant to Kind are set.
type Event struct {
	Kind    EventKind     `json:"kind"`
	Level   int           `json:"level"`
	Cards   []int         `json:"cards,omitempty"`
	Powerup level.Powerup `json:"powerup,omitempty"`
	Seconds int           `json:"seconds,omitempty"`
	Urgent  bool          `json:"urgent,omitempty"`
	Pairs   int           `json:"pairs,omitempty"`
	Reason  FailReason    `json:"reason,omitempty"`
	Reward  *Reward       `json:"reward,omitempty"`
}

// CardView is the client-facing card. Category and Token are only
// included while the card is visible (face up, matched or peeking).
type CardView struct {
	ID       int           `json:"id"`
	Category deck.Category `json:"category,omitempty"`
	Token    string        `json:"token,omitempty"`
	Powerup  level.Powerup `json:"powerup,omitempty"`
	FaceUp   bool          `json:"faceUp"`
	Matched  bool          `json:"matched"`
	Peeking  bool          `json:"peeking"`
}

// Snapshot is a point-in-time copy of the engine state.
type Snapshot struct {
	Phase      Phase      `json:"phase"`
	Level      int        `json:"level"`
	Rows       int        `json:"rows"`
	Cols       int        `json:"cols"`
	Cards      []CardView `json:"cards"`
	Selection  []int      `json:"selection"`
	Moves      int        `json:"moves"`
	Matched    int        `json:"matched"`
	Target     int        `json:"target"`
	TimeLeft   int        `json:"timeLeft"`
	Urgent     bool       `json:"urgent"`
	Peeking    bool       `json:"peeking"`
	TotalScore int        `json:"totalScore"`
	Reason     FailReason `json:"reason,omitempty"`
	Reward     *Reward    `json:"reward,omitempty"`
}

// Result summarises a finished run for the leaderboard.
type Result struct {
	TotalScore int
	Moves      int
	Level      int // 1-based level reached
}
