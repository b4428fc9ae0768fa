// internal/deck/card.go
//
// Card and board types shared by the deck builder and the match engine.
package deck

import "github.com/robalobadob/lemonparty/internal/level"

// Category groups cards by role on the board.
type Category string

const (
	CategoryFruit   Category = "fruit"
	CategoryHazard  Category = "hazard"
	CategoryPowerup Category = "powerup"
)

// Card is one tile. Two cards match iff their Tokens are equal.
// Matched implies FaceUp.
type Card struct {
	ID       int           `json:"id"`
	Category Category      `json:"category"`
	Token    string        `json:"token"`
	Powerup  level.Powerup `json:"powerup,omitempty"` // only for CategoryPowerup
	FaceUp   bool          `json:"faceUp"`
	Matched  bool          `json:"matched"`
	Peeking  bool          `json:"peeking"`
}

// Hidden reports whether the card's face is currently concealed.
func (c Card) Hidden() bool { return !c.FaceUp && !c.Matched && !c.Peeking }

// Board is the shuffled set of cards for one level, in display order.
type Board struct {
	Rows  int    `json:"rows"`
	Cols  int    `json:"cols"`
	Cards []Card `json:"cards"`
}

// Card returns a pointer to the card with id, or nil.
func (b *Board) Card(id int) *Card {
	for i := range b.Cards {
		if b.Cards[i].ID == id {
			return &b.Cards[i]
		}
	}
	return nil
}

// TokenCounts tallies how many cards carry each token.
func (b *Board) TokenCounts() map[string]int {
	out := make(map[string]int)
	for _, c := range b.Cards {
		out[c.Token]++
	}
	return out
}

// Count returns the number of cards in a category.
func (b *Board) Count(cat Category) int {
	n := 0
	for _, c := range b.Cards {
		if c.Category == cat {
			n++
		}
	}
	return n
}
