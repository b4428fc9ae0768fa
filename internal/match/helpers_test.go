package match

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robalobadob/lemonparty/internal/deck"
	"github.com/robalobadob/lemonparty/internal/level"
)

var errEmpty = errors.New("empty")

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

type fakeWallet struct {
	credits []int
	inv     map[level.Powerup]int
}

func (w *fakeWallet) Credit(ctx context.Context, n int) error {
	w.credits = append(w.credits, n)
	return nil
}

func (w *fakeWallet) Consume(ctx context.Context, p level.Powerup) error {
	if w.inv[p] == 0 {
		return errEmpty
	}
	w.inv[p]--
	return nil
}

// fixedBuilder deals hand-written layouts, one per Build call (the last
// one repeats). Layout letters: M mine, T time, A auto-match, R reveal,
// C clear-4, anything else a fruit with that token.
type fixedBuilder struct {
	layouts [][]string
	calls   int
	err     error
}

func (f *fixedBuilder) Build(cfg level.Config) (*deck.Board, error) {
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls
	if i >= len(f.layouts) {
		i = len(f.layouts) - 1
	}
	f.calls++
	cards := make([]deck.Card, 0, len(f.layouts[i]))
	for id, tok := range f.layouts[i] {
		c := deck.Card{ID: id, Token: tok, Category: deck.CategoryFruit}
		switch tok {
		case "M":
			c.Category = deck.CategoryHazard
		case "T":
			c.Category, c.Powerup = deck.CategoryPowerup, level.PowerupTime
		case "A":
			c.Category, c.Powerup = deck.CategoryPowerup, level.PowerupAutoMatch
		case "R":
			c.Category, c.Powerup = deck.CategoryPowerup, level.PowerupReveal
		case "C":
			c.Category, c.Powerup = deck.CategoryPowerup, level.PowerupClear4
		}
		cards = append(cards, c)
	}
	return &deck.Board{Rows: cfg.Rows, Cols: cfg.Cols, Cards: cards}, nil
}

type rig struct {
	t      *testing.T
	ctx    context.Context
	clock  *fakeClock
	wallet *fakeWallet
	e      *Engine
}

func newRig(t *testing.T, levels []level.Config, layouts ...[]string) *rig {
	t.Helper()
	cat, err := level.NewCatalog(levels)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	r := &rig{
		t:      t,
		ctx:    context.Background(),
		clock:  &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		wallet: &fakeWallet{inv: map[level.Powerup]int{}},
	}
	r.e = New(Options{
		Catalog: cat,
		Builder: &fixedBuilder{layouts: layouts},
		Wallet:  r.wallet,
		Now:     r.clock.Now,
	})
	if err := r.e.Start(r.ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return r
}

func (r *rig) advance(d time.Duration) {
	r.clock.t = r.clock.t.Add(d)
	r.e.RunDue(r.ctx)
}

func (r *rig) pick(ids ...int) {
	r.t.Helper()
	for _, id := range ids {
		if !r.e.Pick(r.ctx, id) {
			r.t.Fatalf("Pick(%d) rejected, phase=%s selection=%v", id, r.e.Phase(), r.e.selection)
		}
	}
}

// matchPair picks two cards and lets the match confirm.
func (r *rig) matchPair(a, b int) {
	r.t.Helper()
	r.pick(a, b)
	r.advance(MatchDelay)
}

func (r *rig) card(id int) deck.Card { return *r.e.board.Card(id) }

func hasEvent(evs []Event, kind EventKind) bool {
	for _, ev := range evs {
		if ev.Kind == kind {
			return true
		}
	}
	return false
}

var (
	grid4x4Mine = level.Config{Rows: 4, Cols: 4, TimeLimit: 60, Mines: 1}
	layout4x4   = []string{"M", "M", "a", "a", "b", "b", "c", "c", "d", "d", "e", "e", "f", "f", "g", "g"}
	grid2x2     = level.Config{Rows: 2, Cols: 2, TimeLimit: 45}
	layout2x2   = []string{"a", "a", "b", "b"}
)
