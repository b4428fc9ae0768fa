// internal/leaderboard/leaderboard.go
//
// High-score table: the best MaxEntries runs, highest score first.
// Ties keep insertion order, so an older entry outranks a newer one with
// the same score.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

const (
	MaxEntries = 5
	MaxNameLen = 12
	// MovesBonus is added to the run score for every resolved move.
	MovesBonus = 10
)

var ErrInvalidName = errors.New("invalid name")

// Entry is one leaderboard row. Date is unix milliseconds.
type Entry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Level int    `json:"level"`
	Date  int64  `json:"date"`
}

// Score is the leaderboard value of a finished run.
func Score(totalScore, moves int) int { return totalScore + moves*MovesBonus }

// NormalizeName trims the name and cuts it to MaxNameLen characters.
func NormalizeName(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if utf8.RuneCountInString(s) > MaxNameLen {
		s = strings.TrimSpace(string([]rune(s)[:MaxNameLen]))
	}
	return s, nil
}

// Insert adds e and returns the new top list. The input is not modified.
func Insert(entries []Entry, e Entry) []Entry {
	out := append(slices.Clone(entries), e)
	slices.SortStableFunc(out, func(a, b Entry) int { return b.Score - a.Score })
	if len(out) > MaxEntries {
		out = out[:MaxEntries]
	}
	return out
}

// Qualifies reports whether score would make the list.
func Qualifies(entries []Entry, score int) bool {
	return len(entries) < MaxEntries || score > entries[len(entries)-1].Score
}

// Store persists the table.
type Store interface {
	// Top returns the stored entries, best first.
	Top(ctx context.Context) ([]Entry, error)
	// Add inserts e and prunes the table to MaxEntries in one step,
	// returning the resulting list.
	Add(ctx context.Context, e Entry) ([]Entry, error)
}

// Board records finished runs.
type Board struct {
	store Store
	now   func() time.Time
}

// New builds a Board. now defaults to time.Now.
func New(store Store, now func() time.Time) *Board {
	if now == nil {
		now = time.Now
	}
	return &Board{store: store, now: now}
}

// Top returns the current table.
func (b *Board) Top(ctx context.Context) ([]Entry, error) {
	entries, err := b.store.Top(ctx)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Qualifies reports whether a run worth score would enter the current table.
func (b *Board) Qualifies(ctx context.Context, score int) (bool, error) {
	entries, err := b.Top(ctx)
	if err != nil {
		return false, err
	}
	return Qualifies(entries, score), nil
}

// Record stores a run under name and returns the saved entry together with
// the updated table.
func (b *Board) Record(ctx context.Context, name string, totalScore, moves, level int) (Entry, []Entry, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return Entry{}, nil, err
	}
	e := Entry{
		Name:  name,
		Score: Score(totalScore, moves),
		Level: level,
		Date:  b.now().UnixMilli(),
	}
	entries, err := b.store.Add(ctx, e)
	if err != nil {
		return Entry{}, nil, fmt.Errorf("save leaderboard entry: %w", err)
	}
	log.Info().Str("name", e.Name).Int("score", e.Score).Int("level", e.Level).Msg("leaderboard entry")
	return e, entries, nil
}
