// internal/economy/shop.go
//
// Shop catalog: consumable powerups and wardrobe cosmetics with fixed
// coin prices.
package economy

import (
	"fmt"

	"github.com/robalobadob/lemonparty/internal/level"
)

// Consumable is a purchasable powerup use.
type Consumable struct {
	Kind  level.Powerup `json:"kind"`
	Name  string        `json:"name"`
	Icon  string        `json:"icon"`
	Price int           `json:"price"`
}

// Cosmetic is a wardrobe item. Bought once, then equipped or removed.
type Cosmetic struct {
	ID    string `json:"id"`
	Slot  Slot   `json:"slot"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Price int    `json:"price"`
}

// Shop is an immutable price list.
type Shop struct {
	consumables []Consumable
	cosmetics   []Cosmetic
}

// NewShop builds a shop from explicit lists.
func NewShop(consumables []Consumable, cosmetics []Cosmetic) *Shop {
	return &Shop{
		consumables: append([]Consumable(nil), consumables...),
		cosmetics:   append([]Cosmetic(nil), cosmetics...),
	}
}

// DefaultShop is the stock price list.
func DefaultShop() *Shop {
	return NewShop(
		[]Consumable{
			{Kind: level.PowerupReveal, Name: "Lemon Vision", Icon: "👁️", Price: 30},
			{Kind: level.PowerupTime, Name: "Extra Time", Icon: "⏰", Price: 50},
			{Kind: level.PowerupClear4, Name: "Citrus Storm", Icon: "🌀", Price: 80},
		},
		[]Cosmetic{
			{ID: "hat_1", Slot: SlotHat, Name: "Top Hat", Icon: "🎩", Price: 120},
			{ID: "hat_2", Slot: SlotHat, Name: "Cap", Icon: "🧢", Price: 60},
			{ID: "hat_3", Slot: SlotHat, Name: "Crown", Icon: "👑", Price: 500},
			{ID: "hat_4", Slot: SlotHat, Name: "Sun Hat", Icon: "👒", Price: 90},
			{ID: "hat_5", Slot: SlotHat, Name: "Grad Cap", Icon: "🎓", Price: 150},
			{ID: "hat_6", Slot: SlotHat, Name: "Headphones", Icon: "🎧", Price: 200},
			{ID: "hat_7", Slot: SlotHat, Name: "Viking Helmet", Icon: "🪖", Price: 250},
			{ID: "glasses_1", Slot: SlotGlasses, Name: "Cool Shades", Icon: "🕶️", Price: 80},
			{ID: "glasses_2", Slot: SlotGlasses, Name: "Nerd Specs", Icon: "👓", Price: 70},
			{ID: "glasses_3", Slot: SlotGlasses, Name: "3D Glasses", Icon: "🥽", Price: 110},
			{ID: "shirt_1", Slot: SlotShirt, Name: "Blue Tee", Icon: "👕", Price: 50},
			{ID: "shirt_2", Slot: SlotShirt, Name: "Suit", Icon: "👔", Price: 300},
			{ID: "pants_1", Slot: SlotPants, Name: "Blue Sneakers", Icon: "👟", Price: 60},
			{ID: "pants_2", Slot: SlotPants, Name: "Green Boots", Icon: "🥾", Price: 90},
			{ID: "acc_1", Slot: SlotAccessory, Name: "Purse", Icon: "👛", Price: 100},
			{ID: "acc_2", Slot: SlotAccessory, Name: "Scarf", Icon: "🧣", Price: 70},
		},
	)
}

// Consumables lists the powerups for sale.
func (s *Shop) Consumables() []Consumable { return append([]Consumable(nil), s.consumables...) }

// Cosmetics lists the wardrobe items for sale.
func (s *Shop) Cosmetics() []Cosmetic { return append([]Cosmetic(nil), s.cosmetics...) }

// Consumable looks up a powerup offer.
func (s *Shop) Consumable(kind level.Powerup) (Consumable, error) {
	for _, c := range s.consumables {
		if c.Kind == kind {
			return c, nil
		}
	}
	return Consumable{}, fmt.Errorf("%w: consumable %q", ErrUnknownItem, kind)
}

// Cosmetic looks up a wardrobe item.
func (s *Shop) Cosmetic(id string) (Cosmetic, error) {
	for _, c := range s.cosmetics {
		if c.ID == id {
			return c, nil
		}
	}
	return Cosmetic{}, fmt.Errorf("%w: cosmetic %q", ErrUnknownItem, id)
}
