package economy

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/robalobadob/lemonparty/internal/level"
)

func TestProfileRoundTrip(t *testing.T) {
	spin := "2025-01-02"
	in := Profile{
		Coins:           140,
		Inventory:       Inventory{level.PowerupTime: 2, level.PowerupClear4: 1},
		OwnedFashion:    []string{"hat_1", "acc_2"},
		EquippedFashion: Equipped{SlotHat: "hat_1"},
		LastSpinDate:    &spin,
	}
	b, err := in.Encode()
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
	if out.LastMinigameDate != nil {
		t.Fatalf("absent date decoded as %q", *out.LastMinigameDate)
	}
}

func TestDecodeLenient(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want Profile
	}{
		{name: "empty", doc: "", want: NewProfile()},
		{name: "missing fields", doc: `{"coins": 5}`, want: func() Profile { p := NewProfile(); p.Coins = 5; return p }()},
		{name: "unknown fields", doc: `{"coins": 1, "skin": "skin_3"}`, want: func() Profile { p := NewProfile(); p.Coins = 1; return p }()},
		{
			name: "legacy clear4 key",
			doc:  `{"inventory": {"clear4": 3, "reveal": 1, "bogus": 9}}`,
			want: func() Profile {
				p := NewProfile()
				p.Inventory = Inventory{level.PowerupClear4: 3, level.PowerupReveal: 1}
				return p
			}(),
		},
		{name: "null collections", doc: `{"inventory": null, "ownedFashion": null, "equippedFashion": null}`, want: NewProfile()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.doc))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Decode() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEncodeUsesCanonicalNames(t *testing.T) {
	p := NewProfile()
	p.Inventory[level.PowerupClear4] = 1
	b, _ := p.Encode()
	var raw map[string]json.RawMessage
	_ = json.Unmarshal(b, &raw)
	var inv map[string]int
	_ = json.Unmarshal(raw["inventory"], &inv)
	if inv["clear-4"] != 1 {
		t.Fatalf("encoded inventory = %s, want clear-4 key", raw["inventory"])
	}
	if string(raw["lastSpinDate"]) != "null" {
		t.Fatalf("lastSpinDate = %s, want null", raw["lastSpinDate"])
	}
}
