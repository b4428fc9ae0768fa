// internal/level/level.go
//
// Level definitions for the memory game.
// A Config describes one board: grid size, countdown, how many hazard
// pairs ("mines") and which powerup pairs it carries. Everything not taken
// by mines and powerups is filled with fruit pairs.
package level

import (
	"errors"
	"fmt"
	"strings"
)

// Powerup is the canonical name of a powerup subtype. The same names key
// the consumable inventory.
type Powerup string

const (
	PowerupTime      Powerup = "time"
	PowerupAutoMatch Powerup = "auto-match"
	PowerupReveal    Powerup = "reveal"
	PowerupClear4    Powerup = "clear-4"
)

// Powerups lists every known subtype in display order.
var Powerups = []Powerup{PowerupTime, PowerupAutoMatch, PowerupReveal, PowerupClear4}

// ErrUnknownPowerup is returned by ParsePowerup for unrecognised names.
var ErrUnknownPowerup = errors.New("unknown powerup")

// ParsePowerup maps a name onto its canonical Powerup.
// The legacy spelling "clear4" is accepted for stored inventories.
func ParsePowerup(s string) (Powerup, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "clear4" {
		return PowerupClear4, nil
	}
	for _, p := range Powerups {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPowerup, s)
}

// Valid reports whether p is a known subtype.
func (p Powerup) Valid() bool {
	for _, q := range Powerups {
		if p == q {
			return true
		}
	}
	return false
}

// PairsMatched is how many fruit pairs an auto-matching powerup resolves.
// Zero for powerups that do not auto-match.
func (p Powerup) PairsMatched() int {
	switch p {
	case PowerupAutoMatch:
		return 1
	case PowerupClear4:
		return 2
	}
	return 0
}

// ErrConfiguration marks a level whose geometry cannot produce a board.
var ErrConfiguration = errors.New("invalid level configuration")

// ConfigError describes why a level is unplayable. It unwraps to
// ErrConfiguration.
type ConfigError struct {
	Level  int
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("level %d: %s", e.Level, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// Config is one immutable level definition.
type Config struct {
	Level     int       `yaml:"level" json:"level"`
	Rows      int       `yaml:"rows" json:"rows"`
	Cols      int       `yaml:"cols" json:"cols"`
	TimeLimit int       `yaml:"timeLimit" json:"timeLimit"` // seconds
	Mines     int       `yaml:"mines" json:"mines"`         // hazard pairs
	Powerups  []Powerup `yaml:"powerups" json:"powerups"`
}

// Cells is the number of cards on the board.
func (c Config) Cells() int { return c.Rows * c.Cols }

// FruitPairs is the number of fruit pairs filling the rest of the board.
// It may be negative for a broken config; see Validate.
func (c Config) FruitPairs() int {
	return (c.Cells() - 2*c.Mines - 2*len(c.Powerups)) / 2
}

// TargetPairs is the number of pairs that clear the level.
// Hazard pairs are never required.
func (c Config) TargetPairs() int {
	return c.FruitPairs() + len(c.Powerups)
}

// Validate checks the geometry. All problems are reported together.
func (c Config) Validate() error {
	var errs []string
	if c.Rows <= 0 || c.Cols <= 0 {
		errs = append(errs, "rows and cols must be >= 1")
	}
	if c.TimeLimit <= 0 {
		errs = append(errs, "timeLimit must be >= 1")
	}
	if c.Mines < 0 {
		errs = append(errs, "mines must be >= 0")
	}
	for i, p := range c.Powerups {
		if !p.Valid() {
			errs = append(errs, fmt.Sprintf("powerups[%d]: unknown subtype %q", i, p))
		}
	}
	if c.Cells()%2 != 0 {
		errs = append(errs, fmt.Sprintf("%dx%d grid has an odd number of cells", c.Rows, c.Cols))
	}
	if rest := c.Cells() - 2*c.Mines - 2*len(c.Powerups); rest < 0 {
		errs = append(errs, fmt.Sprintf("not enough space for fruits (%d cells short)", -rest))
	} else if c.TargetPairs() < 1 {
		errs = append(errs, "level needs at least one pair to clear")
	}
	if len(errs) == 0 {
		return nil
	}
	return &ConfigError{Level: c.Level, Reason: strings.Join(errs, "; ")}
}
