// internal/economy/profile.go
//
// Player profile: coin balance, consumable inventory, wardrobe and the
// dates of the last daily claims. Persisted as a single JSON document
// per owner.
//
// Notes:
//   - Decoding is lenient: unknown fields are ignored, missing fields fall
//     back to the zero profile, absent dates stay nil.
//   - The legacy inventory key "clear4" is read as "clear-4".
package economy

import (
	"encoding/json"
	"slices"

	"github.com/robalobadob/lemonparty/internal/level"
)

// Slot is a wardrobe position. Each slot holds at most one cosmetic.
type Slot string

const (
	SlotHat       Slot = "hat"
	SlotGlasses   Slot = "glasses"
	SlotShirt     Slot = "shirt"
	SlotPants     Slot = "pants"
	SlotAccessory Slot = "accessory"
)

// Inventory counts consumable uses per powerup kind.
type Inventory map[level.Powerup]int

// UnmarshalJSON normalises legacy keys and drops unknown kinds.
func (inv *Inventory) UnmarshalJSON(b []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Inventory, len(raw))
	for k, n := range raw {
		p, err := level.ParsePowerup(k)
		if err != nil || n <= 0 {
			continue
		}
		out[p] += n
	}
	*inv = out
	return nil
}

// Equipped maps a slot to the cosmetic worn there.
type Equipped map[Slot]string

// Profile is one owner's economy state.
type Profile struct {
	Coins            int       `json:"coins"`
	Inventory        Inventory `json:"inventory"`
	OwnedFashion     []string  `json:"ownedFashion"`
	EquippedFashion  Equipped  `json:"equippedFashion"`
	LastSpinDate     *string   `json:"lastSpinDate"`
	LastMinigameDate *string   `json:"lastMinigameDate"`
}

// NewProfile returns the zero profile given to new owners.
func NewProfile() Profile {
	return Profile{
		Inventory:       Inventory{},
		OwnedFashion:    []string{},
		EquippedFashion: Equipped{},
	}
}

// Decode parses a stored profile. An empty document is the zero profile.
func Decode(b []byte) (Profile, error) {
	p := NewProfile()
	if len(b) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return NewProfile(), err
	}
	p.normalize()
	return p, nil
}

// Encode serialises the profile for storage.
func (p Profile) Encode() ([]byte, error) {
	p.normalize()
	return json.Marshal(p)
}

func (p *Profile) normalize() {
	if p.Coins < 0 {
		p.Coins = 0
	}
	if p.Inventory == nil {
		p.Inventory = Inventory{}
	}
	if p.OwnedFashion == nil {
		p.OwnedFashion = []string{}
	}
	if p.EquippedFashion == nil {
		p.EquippedFashion = Equipped{}
	}
}

// Owns reports whether the cosmetic id has been bought.
func (p Profile) Owns(id string) bool { return slices.Contains(p.OwnedFashion, id) }
