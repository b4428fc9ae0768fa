// internal/economy/ledger.go
//
// Economy ledger: the only way a Profile changes.
// Every operation is a read-modify-write applied atomically through the
// Repository (a storage transaction) and serialised by a process mutex.
// A failing operation leaves the stored profile untouched.
package economy

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/lemonparty/internal/daily"
	"github.com/robalobadob/lemonparty/internal/level"
)

var (
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAlreadyClaimedToday = errors.New("already claimed today")
	ErrEmptyInventory      = errors.New("no uses left")
	ErrNotOwned            = errors.New("item not owned")
	ErrAlreadyOwned        = errors.New("item already owned")
	ErrUnknownItem         = errors.New("unknown item")
	ErrInvalidAmount       = errors.New("invalid amount")
)

const (
	SpinMin             = 10
	SpinMax             = 100
	QuizQuestions       = 10
	CoinsPerQuizCorrect = 10
)

// Repository persists profiles. Implementations live in internal/store.
type Repository interface {
	// Get returns the owner's profile, or the zero profile if none exists.
	Get(ctx context.Context, owner string) (Profile, error)
	// Update loads the profile, applies fn and stores the result in one
	// transaction. If fn fails nothing is written and its error is returned.
	Update(ctx context.Context, owner string, fn func(p *Profile) error) (Profile, error)
}

// Options tunes a Ledger. Zero values pick production defaults.
type Options struct {
	Shop *Shop
	Rand *rand.Rand
	Now  func() time.Time
}

// Ledger applies economy operations to stored profiles.
type Ledger struct {
	repo Repository
	shop *Shop
	now  func() time.Time

	mu  sync.Mutex // serialises read-modify-write cycles and guards rng
	rng *rand.Rand
}

// NewLedger wires a ledger to its repository.
func NewLedger(repo Repository, opts Options) *Ledger {
	if opts.Shop == nil {
		opts.Shop = DefaultShop()
	}
	if opts.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ledger{repo: repo, shop: opts.Shop, rng: opts.Rand, now: opts.Now}
}

// Shop exposes the price list.
func (l *Ledger) Shop() *Shop { return l.shop }

// Profile reads the owner's current profile.
func (l *Ledger) Profile(ctx context.Context, owner string) (Profile, error) {
	p, err := l.repo.Get(ctx, owner)
	if err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

func (l *Ledger) update(ctx context.Context, owner, op string, fn func(p *Profile) error) (Profile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, err := l.repo.Update(ctx, owner, func(p *Profile) error {
		p.normalize()
		return fn(p)
	})
	if err != nil {
		log.Debug().Err(err).Str("owner", owner).Str("op", op).Msg("ledger operation rejected")
		return Profile{}, err
	}
	log.Debug().Str("owner", owner).Str("op", op).Int("coins", p.Coins).Msg("ledger")
	return p, nil
}

// Credit adds coins.
func (l *Ledger) Credit(ctx context.Context, owner string, amount int) (Profile, error) {
	if amount < 0 {
		return Profile{}, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	return l.update(ctx, owner, "credit", func(p *Profile) error {
		p.Coins += amount
		return nil
	})
}

// Spend removes coins, failing when the balance is too low.
func (l *Ledger) Spend(ctx context.Context, owner string, amount int) (Profile, error) {
	if amount < 0 {
		return Profile{}, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	return l.update(ctx, owner, "spend", func(p *Profile) error {
		return debit(p, amount)
	})
}

func debit(p *Profile, amount int) error {
	if p.Coins < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, p.Coins, amount)
	}
	p.Coins -= amount
	return nil
}

// PurchaseConsumable buys one use of kind.
func (l *Ledger) PurchaseConsumable(ctx context.Context, owner string, kind level.Powerup) (Profile, error) {
	item, err := l.shop.Consumable(kind)
	if err != nil {
		return Profile{}, err
	}
	return l.update(ctx, owner, "buy_consumable", func(p *Profile) error {
		if err := debit(p, item.Price); err != nil {
			return err
		}
		p.Inventory[item.Kind]++
		return nil
	})
}

// PurchaseCosmetic buys a wardrobe item. Owned items cannot be bought again.
func (l *Ledger) PurchaseCosmetic(ctx context.Context, owner, id string) (Profile, error) {
	item, err := l.shop.Cosmetic(id)
	if err != nil {
		return Profile{}, err
	}
	return l.update(ctx, owner, "buy_cosmetic", func(p *Profile) error {
		if p.Owns(item.ID) {
			return fmt.Errorf("%w: %s", ErrAlreadyOwned, item.ID)
		}
		if err := debit(p, item.Price); err != nil {
			return err
		}
		p.OwnedFashion = append(p.OwnedFashion, item.ID)
		return nil
	})
}

// Equip toggles an owned cosmetic in its slot: wearing it again takes it off.
func (l *Ledger) Equip(ctx context.Context, owner, id string) (Profile, error) {
	item, err := l.shop.Cosmetic(id)
	if err != nil {
		return Profile{}, err
	}
	return l.update(ctx, owner, "equip", func(p *Profile) error {
		if !p.Owns(item.ID) {
			return fmt.Errorf("%w: %s", ErrNotOwned, item.ID)
		}
		if p.EquippedFashion[item.Slot] == item.ID {
			delete(p.EquippedFashion, item.Slot)
		} else {
			p.EquippedFashion[item.Slot] = item.ID
		}
		return nil
	})
}

// DailySpin pays a random reward in [SpinMin, SpinMax] once per UTC day.
func (l *Ledger) DailySpin(ctx context.Context, owner string) (int, Profile, error) {
	today := daily.DateKey(l.now())
	reward := 0
	p, err := l.update(ctx, owner, "daily_spin", func(p *Profile) error {
		if p.LastSpinDate != nil && *p.LastSpinDate == today {
			return ErrAlreadyClaimedToday
		}
		reward = SpinMin + l.rng.IntN(SpinMax-SpinMin+1)
		p.Coins += reward
		p.LastSpinDate = &today
		return nil
	})
	if err != nil {
		return 0, Profile{}, err
	}
	return reward, p, nil
}

// DailyQuiz pays CoinsPerQuizCorrect per correct answer once per UTC day.
// The score is clamped to [0, QuizQuestions].
func (l *Ledger) DailyQuiz(ctx context.Context, owner string, correct int) (int, Profile, error) {
	today := daily.DateKey(l.now())
	reward := min(max(correct, 0), QuizQuestions) * CoinsPerQuizCorrect
	p, err := l.update(ctx, owner, "daily_quiz", func(p *Profile) error {
		if p.LastMinigameDate != nil && *p.LastMinigameDate == today {
			return ErrAlreadyClaimedToday
		}
		p.Coins += reward
		p.LastMinigameDate = &today
		return nil
	})
	if err != nil {
		return 0, Profile{}, err
	}
	return reward, p, nil
}

// Consume spends one inventory use of kind.
func (l *Ledger) Consume(ctx context.Context, owner string, kind level.Powerup) (Profile, error) {
	return l.update(ctx, owner, "consume", func(p *Profile) error {
		if p.Inventory[kind] <= 0 {
			return fmt.Errorf("%w: %s", ErrEmptyInventory, kind)
		}
		p.Inventory[kind]--
		if p.Inventory[kind] == 0 {
			delete(p.Inventory, kind)
		}
		return nil
	})
}

// Account binds the ledger to one owner so a match engine can pay out
// level rewards and spend consumables.
type Account struct {
	ledger *Ledger
	owner  string
}

// Account returns the wallet view for owner.
func (l *Ledger) Account(owner string) *Account { return &Account{ledger: l, owner: owner} }

// Owner is the profile key this account writes to.
func (a *Account) Owner() string { return a.owner }

func (a *Account) Credit(ctx context.Context, amount int) error {
	_, err := a.ledger.Credit(ctx, a.owner, amount)
	return err
}

func (a *Account) Consume(ctx context.Context, p level.Powerup) error {
	_, err := a.ledger.Consume(ctx, a.owner, p)
	return err
}
