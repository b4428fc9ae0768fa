package match

import (
	"errors"
	"testing"
	"time"

	"github.com/robalobadob/lemonparty/internal/level"
)

func TestTimePowerupAddsSeconds(t *testing.T) {
	cfg := level.Config{Rows: 2, Cols: 3, TimeLimit: 45, Powerups: []level.Powerup{level.PowerupTime}}
	r := newRig(t, []level.Config{cfg}, []string{"T", "T", "a", "a", "b", "b"})
	r.pick(0, 1)
	if r.e.timeLeft != 45+TimeBonusSeconds {
		t.Fatalf("timeLeft = %d, want %d", r.e.timeLeft, 45+TimeBonusSeconds)
	}
	r.advance(MatchDelay)
	if r.e.matched != 1 || !r.card(0).Matched {
		t.Fatalf("powerup pair not matched: matched=%d", r.e.matched)
	}
}

func TestRevealBlocksPicksUntilItEnds(t *testing.T) {
	cfg := level.Config{Rows: 2, Cols: 3, TimeLimit: 45, Powerups: []level.Powerup{level.PowerupReveal}}
	r := newRig(t, []level.Config{cfg}, []string{"R", "R", "a", "a", "b", "b"})
	r.pick(0, 1)
	r.advance(MatchDelay)
	if !r.e.peeking {
		t.Fatalf("reveal not active after its pair matched")
	}
	if r.e.Pick(r.ctx, 2) {
		t.Fatalf("pick accepted while peeking")
	}
	for _, c := range r.e.Snapshot().Cards {
		if c.Token == "" {
			t.Fatalf("card %d hidden during reveal", c.ID)
		}
	}
	r.advance(RevealDuration - MatchDelay)
	if r.e.peeking || r.card(2).Peeking {
		t.Fatalf("reveal still active after %s", RevealDuration)
	}
	r.pick(2)
}

func TestRevealRenewalRestartsWindow(t *testing.T) {
	r := newRig(t, []level.Config{grid4x4Mine}, layout4x4)
	r.wallet.inv[level.PowerupReveal] = 2
	if err := r.e.UseConsumable(r.ctx, level.PowerupReveal); err != nil {
		t.Fatal(err)
	}
	r.advance(time.Second)
	if err := r.e.UseConsumable(r.ctx, level.PowerupReveal); err != nil {
		t.Fatal(err)
	}
	r.advance(time.Second)
	if !r.e.peeking {
		t.Fatalf("first reveal ended the renewed one")
	}
	r.advance(time.Second)
	if r.e.peeking {
		t.Fatalf("renewed reveal never ended")
	}
}

func TestBoardAutoMatchFiresAfterDelay(t *testing.T) {
	cfg := level.Config{Rows: 2, Cols: 3, TimeLimit: 45, Powerups: []level.Powerup{level.PowerupAutoMatch}}
	r := newRig(t, []level.Config{cfg}, []string{"A", "A", "a", "a", "b", "b"})
	r.pick(0, 1)
	r.advance(MatchDelay)
	if r.e.matched != 1 {
		t.Fatalf("matched = %d after powerup pair, want 1", r.e.matched)
	}
	r.advance(AutoMatchDelay - MatchDelay)
	if r.e.matched != 2 || !r.card(2).Matched || !r.card(3).Matched {
		t.Fatalf("auto-match did not resolve the first fruit pair: matched=%d", r.e.matched)
	}
	if r.card(4).Matched || r.e.Phase() != PhasePlaying {
		t.Fatalf("auto-match went too far")
	}
}

func TestConsumableAutoMatchClearsLevel(t *testing.T) {
	r := newRig(t, []level.Config{grid4x4Mine, grid4x4Mine}, layout4x4)
	for id := 2; id < 14; id += 2 {
		r.matchPair(id, id+1)
	}
	if r.e.matched != 6 {
		t.Fatalf("matched = %d, want 6", r.e.matched)
	}
	r.e.Events()
	r.wallet.inv[level.PowerupAutoMatch] = 1
	r.wallet.inv[level.PowerupTime] = 1

	if err := r.e.UseConsumable(r.ctx, level.PowerupAutoMatch); err != nil {
		t.Fatalf("UseConsumable: %v", err)
	}
	if r.e.matched != 7 || r.wallet.inv[level.PowerupAutoMatch] != 0 {
		t.Fatalf("matched=%d inventory=%d, want 7 and 0", r.e.matched, r.wallet.inv[level.PowerupAutoMatch])
	}
	if !hasEvent(r.e.Events(), EventLevelCleared) {
		t.Fatalf("no level_cleared event")
	}
	if len(r.wallet.credits) != 1 {
		t.Fatalf("credits = %v, want one award", r.wallet.credits)
	}

	if err := r.e.UseConsumable(r.ctx, level.PowerupTime); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("UseConsumable after clear = %v, want ErrInvalidTransition", err)
	}
	if r.wallet.inv[level.PowerupTime] != 1 {
		t.Fatalf("rejected consumable was still spent")
	}

	r.advance(LevelEndDelay)
	if r.e.Phase() != PhaseLevelComplete {
		t.Fatalf("phase = %s, want level_complete", r.e.Phase())
	}
}

func TestConsumableRejections(t *testing.T) {
	r := newRig(t, []level.Config{grid4x4Mine}, layout4x4)

	if err := r.e.UseConsumable(r.ctx, level.PowerupTime); !errors.Is(err, errEmpty) {
		t.Fatalf("UseConsumable with none left = %v, want wallet error", err)
	}
	if r.e.timeLeft != 60 {
		t.Fatalf("timeLeft = %d after a refused spend, want 60", r.e.timeLeft)
	}
	if err := r.e.UseConsumable(r.ctx, level.Powerup("shield")); !errors.Is(err, level.ErrUnknownPowerup) {
		t.Fatalf("UseConsumable(shield) = %v, want ErrUnknownPowerup", err)
	}

	cat, _ := level.NewCatalog([]level.Config{grid2x2})
	e := New(Options{Catalog: cat, Builder: &fixedBuilder{layouts: [][]string{layout2x2}}})
	if err := e.UseConsumable(r.ctx, level.PowerupTime); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("UseConsumable while idle = %v, want ErrInvalidTransition", err)
	}
	_ = e.Start(r.ctx)
	if err := e.UseConsumable(r.ctx, level.PowerupTime); !errors.Is(err, ErrNoWallet) {
		t.Fatalf("UseConsumable without wallet = %v, want ErrNoWallet", err)
	}
}

func TestAutoMatchSkipsSelectedCards(t *testing.T) {
	cfg := level.Config{Rows: 2, Cols: 3, TimeLimit: 45}
	r := newRig(t, []level.Config{cfg}, []string{"a", "a", "b", "b", "c", "c"})
	r.wallet.inv[level.PowerupAutoMatch] = 1
	r.pick(0)
	if err := r.e.UseConsumable(r.ctx, level.PowerupAutoMatch); err != nil {
		t.Fatal(err)
	}
	if r.card(0).Matched || r.card(1).Matched {
		t.Fatalf("auto-match took the pair of a selected card")
	}
	if !r.card(2).Matched || !r.card(3).Matched {
		t.Fatalf("auto-match did not take the next eligible pair")
	}
	if len(r.e.selection) != 1 || r.e.selection[0] != 0 {
		t.Fatalf("selection = %v, want [0]", r.e.selection)
	}
	r.matchPair(0, 1)
	if r.e.matched != 2 {
		t.Fatalf("matched = %d, want 2", r.e.matched)
	}
}

func TestClear4DegradesToAvailablePairs(t *testing.T) {
	r := newRig(t, []level.Config{grid2x2}, layout2x2)
	r.matchPair(0, 1)
	r.wallet.inv[level.PowerupClear4] = 1
	r.e.Events()
	if err := r.e.UseConsumable(r.ctx, level.PowerupClear4); err != nil {
		t.Fatal(err)
	}
	var got Event
	for _, ev := range r.e.Events() {
		if ev.Kind == EventAutoMatched {
			got = ev
		}
	}
	if got.Pairs != 1 || len(got.Cards) != 2 {
		t.Fatalf("auto_matched event = %+v, want one pair", got)
	}
	if !r.e.awarded {
		t.Fatalf("level not cleared by clear-4")
	}
}
