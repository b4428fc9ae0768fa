// internal/match/powerup.go
//
// Powerup effects. In-board powerups fire when their pair is matched;
// consumables fire when spent from the player's inventory.
package match

import (
	"context"
	"fmt"
	"time"

	"github.com/robalobadob/lemonparty/internal/deck"
	"github.com/robalobadob/lemonparty/internal/level"
)

// UseConsumable spends one inventory use of p and applies its effect at
// once. Nothing happens (and nothing is spent) outside an unfinished level
// or when the wallet refuses the spend.
func (e *Engine) UseConsumable(ctx context.Context, p level.Powerup) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", level.ErrUnknownPowerup, p)
	}
	if e.phase != PhasePlaying || e.awarded {
		return ErrInvalidTransition
	}
	if e.wallet == nil {
		return ErrNoWallet
	}
	if err := e.wallet.Consume(ctx, p); err != nil {
		return err
	}
	e.activate(ctx, p, 0)
	return nil
}

// activate applies p. Auto-matching resolves after delay (immediately
// when delay is zero).
func (e *Engine) activate(ctx context.Context, p level.Powerup, delay time.Duration) {
	e.emit(Event{Kind: EventPowerup, Powerup: p})
	switch p {
	case level.PowerupTime:
		e.timeLeft += TimeBonusSeconds
	case level.PowerupAutoMatch, level.PowerupClear4:
		n := p.PairsMatched()
		if delay <= 0 {
			e.autoMatch(ctx, n)
			return
		}
		e.schedule(delay, "auto-match", func(ctx context.Context) { e.autoMatch(ctx, n) })
	case level.PowerupReveal:
		if e.revealEnd != nil {
			e.revealEnd.Cancel()
		}
		e.setPeeking(true)
		e.revealEnd = e.schedule(RevealDuration, "reveal-end", func(ctx context.Context) {
			e.revealEnd = nil
			e.setPeeking(false)
			e.emit(Event{Kind: EventRevealEnded})
		})
	}
}

// autoMatch resolves up to n fruit pairs that are neither matched nor in
// the current selection. Fewer eligible pairs just means fewer matches.
func (e *Engine) autoMatch(ctx context.Context, n int) {
	if e.phase != PhasePlaying {
		return
	}
	selected := make(map[int]bool, len(e.selection))
	for _, id := range e.selection {
		selected[id] = true
	}

	var order []string
	byToken := make(map[string][]int)
	for i, c := range e.board.Cards {
		if c.Matched || c.Category != deck.CategoryFruit || selected[c.ID] {
			continue
		}
		if _, ok := byToken[c.Token]; !ok {
			order = append(order, c.Token)
		}
		byToken[c.Token] = append(byToken[c.Token], i)
	}

	var ids []int
	pairs := 0
	for _, tok := range order {
		idx := byToken[tok]
		for len(idx) >= 2 && pairs < n {
			for _, i := range idx[:2] {
				c := &e.board.Cards[i]
				c.Matched, c.FaceUp = true, true
				ids = append(ids, c.ID)
			}
			idx = idx[2:]
			pairs++
			e.matched++
		}
	}
	e.emit(Event{Kind: EventAutoMatched, Cards: ids, Pairs: pairs})
	e.checkWin(ctx)
}

func (e *Engine) setPeeking(on bool) {
	e.peeking = on
	for i := range e.board.Cards {
		e.board.Cards[i].Peeking = on
	}
}
