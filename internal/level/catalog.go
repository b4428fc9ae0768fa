// internal/level/catalog.go
//
// Ordered level catalog.
//
// Initialization behavior (Load):
//   1. If LEVELS_FILE is set, the catalog is read from that YAML file.
//   2. Otherwise the embedded assets/levels.yaml is used.
//
// The catalog is finite; indexes past the end reuse the last entry.
package level

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/lemonparty/assets"
)

// Catalog is an immutable, non-empty sequence of level configs.
type Catalog struct {
	levels []Config
}

type catalogFile struct {
	Levels []Config `yaml:"levels"`
}

// NewCatalog validates every level and builds a catalog.
func NewCatalog(levels []Config) (*Catalog, error) {
	if len(levels) == 0 {
		return nil, errors.New("level catalog is empty")
	}
	out := make([]Config, len(levels))
	for i, c := range levels {
		if c.Level == 0 {
			c.Level = i + 1
		}
		c.Powerups = append([]Powerup(nil), c.Powerups...)
		if err := c.Validate(); err != nil {
			return nil, err
		}
		out[i] = c
	}
	return &Catalog{levels: out}, nil
}

// Parse decodes a YAML catalog document.
func Parse(b []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse levels: %w", err)
	}
	return NewCatalog(f.Levels)
}

// Load reads the catalog from path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		b, err := assets.LevelsYAML()
		if err != nil {
			return nil, err
		}
		return Parse(b)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(b)
}

// Default returns the embedded catalog. It panics if the embedded file is
// broken, which only a bad build can cause.
func Default() *Catalog {
	c, err := Load("")
	if err != nil {
		panic(err)
	}
	return c
}

// Len is the number of distinct levels.
func (c *Catalog) Len() int { return len(c.levels) }

// At returns the config for a zero-based level index.
// Negative indexes clamp to the first level, indexes past the end to the last.
func (c *Catalog) At(idx int) Config {
	if idx < 0 {
		idx = 0
	}
	if idx >= len(c.levels) {
		idx = len(c.levels) - 1
	}
	cfg := c.levels[idx]
	cfg.Powerups = append([]Powerup(nil), cfg.Powerups...)
	return cfg
}

// IsLast reports whether idx is the final catalog entry (or beyond it).
func (c *Catalog) IsLast(idx int) bool { return idx >= len(c.levels)-1 }

// All returns a copy of every level, in order.
func (c *Catalog) All() []Config {
	out := make([]Config, len(c.levels))
	for i := range c.levels {
		out[i] = c.At(i)
	}
	return out
}
