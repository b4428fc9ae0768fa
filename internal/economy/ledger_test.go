package economy

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/lemonparty/internal/level"
)

// docRepo stores encoded profiles, like the SQL stores do.
type docRepo struct {
	mu   sync.Mutex
	docs map[string][]byte
	fail error
}

func newDocRepo() *docRepo { return &docRepo{docs: map[string][]byte{}} }

func (r *docRepo) Get(ctx context.Context, owner string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Decode(r.docs[owner])
}

func (r *docRepo) Update(ctx context.Context, owner string, fn func(p *Profile) error) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := Decode(r.docs[owner])
	if err != nil {
		return Profile{}, err
	}
	if err := fn(&p); err != nil {
		return Profile{}, err
	}
	if r.fail != nil {
		return Profile{}, r.fail
	}
	b, err := p.Encode()
	if err != nil {
		return Profile{}, err
	}
	r.docs[owner] = b
	return p, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newLedger(t *testing.T) (*Ledger, *docRepo, *clock) {
	t.Helper()
	repo := newDocRepo()
	c := &clock{t: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)}
	l := NewLedger(repo, Options{Rand: rand.New(rand.NewPCG(1, 2)), Now: c.now})
	return l, repo, c
}

func balance(t *testing.T, l *Ledger, owner string) int {
	t.Helper()
	p, err := l.Profile(context.Background(), owner)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	return p.Coins
}

func TestNewOwnerHasZeroProfile(t *testing.T) {
	l, _, _ := newLedger(t)
	p, err := l.Profile(context.Background(), "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if p.Coins != 0 || len(p.Inventory) != 0 || len(p.OwnedFashion) != 0 || p.LastSpinDate != nil {
		t.Fatalf("Profile() = %+v, want zero profile", p)
	}
}

func TestCreditAndSpend(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	if _, err := l.Credit(ctx, "u", 40); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Credit(ctx, "u", -1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("Credit(-1) = %v, want ErrInvalidAmount", err)
	}
	p, err := l.Spend(ctx, "u", 15)
	if err != nil || p.Coins != 25 {
		t.Fatalf("Spend(15) = %d, %v; want 25, nil", p.Coins, err)
	}
	if _, err := l.Spend(ctx, "u", 26); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("Spend(26) = %v, want ErrInsufficientFunds", err)
	}
	if got := balance(t, l, "u"); got != 25 {
		t.Fatalf("balance = %d after failed spend, want 25", got)
	}
}

func TestPurchaseConsumable(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	_, _ = l.Credit(ctx, "u", 30)

	if _, err := l.PurchaseConsumable(ctx, "u", level.PowerupTime); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("buy time with 30 coins = %v, want ErrInsufficientFunds", err)
	}
	p, _ := l.Profile(ctx, "u")
	if p.Coins != 30 || p.Inventory[level.PowerupTime] != 0 {
		t.Fatalf("failed purchase changed profile: %+v", p)
	}

	p, err := l.PurchaseConsumable(ctx, "u", level.PowerupReveal)
	if err != nil {
		t.Fatalf("buy reveal: %v", err)
	}
	if p.Coins != 0 || p.Inventory[level.PowerupReveal] != 1 {
		t.Fatalf("after buying reveal: coins=%d reveal=%d, want 0 and 1", p.Coins, p.Inventory[level.PowerupReveal])
	}
	if _, err := l.PurchaseConsumable(ctx, "u", level.PowerupAutoMatch); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("buy auto-match = %v, want ErrUnknownItem", err)
	}
}

func TestConsume(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	_, _ = l.Credit(ctx, "u", 100)
	_, _ = l.PurchaseConsumable(ctx, "u", level.PowerupClear4)

	wallet := l.Account("u")
	if err := wallet.Consume(ctx, level.PowerupClear4); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if err := wallet.Consume(ctx, level.PowerupClear4); !errors.Is(err, ErrEmptyInventory) {
		t.Fatalf("second Consume = %v, want ErrEmptyInventory", err)
	}
	p, _ := l.Profile(ctx, "u")
	if p.Inventory[level.PowerupClear4] != 0 {
		t.Fatalf("inventory = %v, want no clear-4 left", p.Inventory)
	}
	if err := wallet.Credit(ctx, 10); err != nil {
		t.Fatal(err)
	}
	if got := balance(t, l, "u"); got != 30 {
		t.Fatalf("balance = %d, want 30", got)
	}
}

func TestCosmetics(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	_, _ = l.Credit(ctx, "u", 1000)

	if _, err := l.Equip(ctx, "u", "hat_1"); !errors.Is(err, ErrNotOwned) {
		t.Fatalf("equip unowned = %v, want ErrNotOwned", err)
	}
	if _, err := l.PurchaseCosmetic(ctx, "u", "hat_1"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.PurchaseCosmetic(ctx, "u", "hat_1"); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("buy twice = %v, want ErrAlreadyOwned", err)
	}
	if _, err := l.PurchaseCosmetic(ctx, "u", "hat_99"); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("buy unknown = %v, want ErrUnknownItem", err)
	}
	_, _ = l.PurchaseCosmetic(ctx, "u", "hat_2")

	steps := []struct {
		id   string
		want string
	}{
		{id: "hat_1", want: "hat_1"},
		{id: "hat_2", want: "hat_2"},
		{id: "hat_2", want: ""},
	}
	for _, s := range steps {
		p, err := l.Equip(ctx, "u", s.id)
		if err != nil {
			t.Fatal(err)
		}
		if got := p.EquippedFashion[SlotHat]; got != s.want {
			t.Fatalf("Equip(%s): hat = %q, want %q", s.id, got, s.want)
		}
	}
	if got := balance(t, l, "u"); got != 1000-120-60 {
		t.Fatalf("balance = %d, want %d", got, 1000-120-60)
	}
}

func TestDailySpinOncePerDay(t *testing.T) {
	l, _, c := newLedger(t)
	ctx := context.Background()

	reward, p, err := l.DailySpin(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if reward < SpinMin || reward > SpinMax || p.Coins != reward {
		t.Fatalf("DailySpin() = %d (coins %d), want reward in [%d,%d] credited", reward, p.Coins, SpinMin, SpinMax)
	}
	if p.LastSpinDate == nil || *p.LastSpinDate != "2025-07-01" {
		t.Fatalf("LastSpinDate = %v, want 2025-07-01", p.LastSpinDate)
	}

	c.t = c.t.Add(10 * time.Hour)
	if _, _, err := l.DailySpin(ctx, "u"); !errors.Is(err, ErrAlreadyClaimedToday) {
		t.Fatalf("second spin = %v, want ErrAlreadyClaimedToday", err)
	}
	if got := balance(t, l, "u"); got != reward {
		t.Fatalf("balance = %d after rejected spin, want %d", got, reward)
	}

	c.t = c.t.Add(5 * time.Hour)
	if _, _, err := l.DailySpin(ctx, "u"); err != nil {
		t.Fatalf("spin next day: %v", err)
	}
}

func TestSpinRewardRange(t *testing.T) {
	l, _, c := newLedger(t)
	ctx := context.Background()
	seen := map[int]bool{}
	for i := 0; i < 400; i++ {
		r, _, err := l.DailySpin(ctx, "u")
		if err != nil {
			t.Fatal(err)
		}
		if r < SpinMin || r > SpinMax {
			t.Fatalf("reward %d out of range", r)
		}
		seen[r] = true
		c.t = c.t.AddDate(0, 0, 1)
	}
	if len(seen) < 50 {
		t.Fatalf("only %d distinct rewards in 400 spins", len(seen))
	}
}

func TestDailyQuiz(t *testing.T) {
	tests := []struct {
		correct int
		want    int
	}{
		{correct: 7, want: 70},
		{correct: -3, want: 0},
		{correct: 15, want: 100},
	}
	for _, tt := range tests {
		l, _, _ := newLedger(t)
		ctx := context.Background()
		got, p, err := l.DailyQuiz(ctx, "u", tt.correct)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want || p.Coins != tt.want {
			t.Errorf("DailyQuiz(%d) = %d (coins %d), want %d", tt.correct, got, p.Coins, tt.want)
		}
		if _, _, err := l.DailyQuiz(ctx, "u", 10); !errors.Is(err, ErrAlreadyClaimedToday) {
			t.Errorf("second quiz = %v, want ErrAlreadyClaimedToday", err)
		}
		// the spin has its own date
		if _, _, err := l.DailySpin(ctx, "u"); err != nil {
			t.Errorf("spin after quiz: %v", err)
		}
	}
}

func TestStorageFailureLeavesProfile(t *testing.T) {
	l, repo, _ := newLedger(t)
	ctx := context.Background()
	_, _ = l.Credit(ctx, "u", 80)
	repo.fail = errors.New("disk full")
	if _, err := l.PurchaseConsumable(ctx, "u", level.PowerupClear4); err == nil {
		t.Fatalf("purchase succeeded with failing storage")
	}
	repo.fail = nil
	p, _ := l.Profile(ctx, "u")
	if p.Coins != 80 || len(p.Inventory) != 0 {
		t.Fatalf("profile changed by failed write: %+v", p)
	}
}

func TestConcurrentCredits(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Credit(ctx, "u", 2)
		}()
	}
	wg.Wait()
	if got := balance(t, l, "u"); got != 100 {
		t.Fatalf("balance = %d after concurrent credits, want 100", got)
	}
}
