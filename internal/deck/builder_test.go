package deck

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/robalobadob/lemonparty/internal/level"
)

func TestBuildInvariants(t *testing.T) {
	b := NewSeededBuilder(7)
	for _, cfg := range level.Default().All() {
		t.Run(fmt.Sprintf("level %d", cfg.Level), func(t *testing.T) {
			board, err := b.Build(cfg)
			if err != nil {
				t.Fatalf("Build() error: %v", err)
			}
			if len(board.Cards) != cfg.Rows*cfg.Cols {
				t.Fatalf("board size = %d, want %d", len(board.Cards), cfg.Rows*cfg.Cols)
			}
			if got := board.Count(CategoryHazard); got != 2*cfg.Mines {
				t.Fatalf("hazard cards = %d, want %d", got, 2*cfg.Mines)
			}
			if got := board.Count(CategoryPowerup); got != 2*len(cfg.Powerups) {
				t.Fatalf("powerup cards = %d, want %d", got, 2*len(cfg.Powerups))
			}
			if got := board.Count(CategoryFruit); got != 2*cfg.FruitPairs() {
				t.Fatalf("fruit cards = %d, want %d", got, 2*cfg.FruitPairs())
			}
			for token, n := range board.TokenCounts() {
				if n%2 != 0 {
					t.Fatalf("token %s appears %d times, want an even count", token, n)
				}
			}
			seen := make(map[int]bool)
			for _, c := range board.Cards {
				if c.ID < 0 || c.ID >= len(board.Cards) || seen[c.ID] {
					t.Fatalf("bad or duplicate id %d", c.ID)
				}
				seen[c.ID] = true
				if c.FaceUp || c.Matched || c.Peeking {
					t.Fatalf("card %d dealt face up: %+v", c.ID, c)
				}
				if (c.Category == CategoryPowerup) != (c.Powerup != "") {
					t.Fatalf("card %d powerup subtype mismatch: %+v", c.ID, c)
				}
			}
		})
	}
}

func TestHazardTokenIsDistinct(t *testing.T) {
	board, err := NewSeededBuilder(1).Build(level.Config{Rows: 6, Cols: 4, TimeLimit: 90, Mines: 3, Powerups: []level.Powerup{level.PowerupTime, level.PowerupAutoMatch}})
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range board.Cards {
		if (c.Token == MineToken) != (c.Category == CategoryHazard) {
			t.Fatalf("mine token on non-hazard or hazard without mine token: %+v", c)
		}
	}
}

func TestBuildConfigurationError(t *testing.T) {
	_, err := NewSeededBuilder(1).Build(level.Config{Level: 3, Rows: 2, Cols: 2, TimeLimit: 10, Mines: 2, Powerups: []level.Powerup{level.PowerupTime}})
	if !errors.Is(err, level.ErrConfiguration) {
		t.Fatalf("Build() err = %v, want ErrConfiguration", err)
	}
}

func TestBuildIsReproducibleWithSeed(t *testing.T) {
	cfg := level.Default().At(3)
	a, _ := NewSeededBuilder(99).Build(cfg)
	b, _ := NewSeededBuilder(99).Build(cfg)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different boards")
	}
}

func TestShuffleIsUniform(t *testing.T) {
	rng := rand.New(rand.NewPCG(2024, 0))
	const draws = 60000
	counts := make(map[[3]int]int)
	for i := 0; i < draws; i++ {
		p := [3]int{0, 1, 2}
		Shuffle(rng, 3, func(i, j int) { p[i], p[j] = p[j], p[i] })
		counts[p]++
	}
	if len(counts) != 6 {
		t.Fatalf("saw %d permutations, want 6", len(counts))
	}
	want := draws / 6
	for p, n := range counts {
		if n < want*9/10 || n > want*11/10 {
			t.Errorf("permutation %v drawn %d times, want about %d", p, n, want)
		}
	}
}
