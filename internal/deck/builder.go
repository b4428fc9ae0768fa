// internal/deck/builder.go
//
// Deck construction for one level.
//
// Layout, before shuffling:
//   - one hazard pair per mine, all sharing the mine token
//   - one pair per requested powerup subtype
//   - fruit pairs, cycling through the palette (itself shuffled first)
//
// The full deck is then permuted with Fisher–Yates. IDs are assigned in
// construction order and are only unique within one board.
package deck

import (
	"math/rand/v2"
	"time"

	"github.com/robalobadob/lemonparty/internal/level"
)

// MineToken is the content token of every hazard card.
const MineToken = "💣"

// ThemeToken appears twice in the palette so it is dealt more often.
const ThemeToken = "🍋"

// Palette is the fruit cycle used to fill a board.
var Palette = []string{
	ThemeToken, ThemeToken,
	"🍊", "🍐", "🍏", "🍎", "🍉", "🍇", "🥝", "🫐", "🍑", "🍒", "🍓", "🍍",
}

// PowerupTokens maps each powerup subtype to its card face.
var PowerupTokens = map[level.Powerup]string{
	level.PowerupTime:      "⏰",
	level.PowerupAutoMatch: "🪄",
	level.PowerupReveal:    "👁️",
	level.PowerupClear4:    "🌀",
}

// Source yields uniform integers in [0, n). *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// Builder deals boards from level configs.
// A Builder is not safe for concurrent use unless its Source is.
type Builder struct {
	rng Source
}

// NewBuilder returns a Builder drawing from rng. A nil rng gets a
// time-seeded PCG source.
func NewBuilder(rng Source) *Builder {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>32|1))
	}
	return &Builder{rng: rng}
}

// NewSeededBuilder returns a Builder with a reproducible PCG source.
func NewSeededBuilder(seed uint64) *Builder {
	return &Builder{rng: rand.New(rand.NewPCG(seed, 0))}
}

// Build deals a shuffled board for cfg. It fails with a *level.ConfigError
// when the geometry cannot be satisfied.
func (b *Builder) Build(cfg level.Config) (*Board, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cards := make([]Card, 0, cfg.Cells())
	nextID := 0
	add := func(cat Category, token string, p level.Powerup) {
		for i := 0; i < 2; i++ {
			cards = append(cards, Card{ID: nextID, Category: cat, Token: token, Powerup: p})
			nextID++
		}
	}

	for i := 0; i < cfg.Mines; i++ {
		add(CategoryHazard, MineToken, "")
	}
	for _, p := range cfg.Powerups {
		add(CategoryPowerup, PowerupTokens[p], p)
	}

	fruits := append([]string(nil), Palette...)
	Shuffle(b.rng, len(fruits), func(i, j int) { fruits[i], fruits[j] = fruits[j], fruits[i] })
	for i := 0; i < cfg.FruitPairs(); i++ {
		add(CategoryFruit, fruits[i%len(fruits)], "")
	}

	Shuffle(b.rng, len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	return &Board{Rows: cfg.Rows, Cols: cfg.Cols, Cards: cards}, nil
}

// Shuffle permutes n elements with the Fisher–Yates algorithm, drawing
// from rng; every ordering is equally likely given a uniform source.
func Shuffle(rng Source, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		swap(i, j)
	}
}
