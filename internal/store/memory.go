// internal/store/memory.go
//
// In-memory Backend.
// Used in tests and for throwaway servers (STORE_DRIVER=memory).
//
// Characteristics:
//   - Profiles are kept encoded, so every read decodes a private copy.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
package store

import (
	"context"
	"strings"
	"sync"

	"github.com/robalobadob/lemonparty/internal/economy"
	"github.com/robalobadob/lemonparty/internal/leaderboard"
)

type memory struct {
	mu       sync.RWMutex
	profiles map[string][]byte // owner -> encoded profile
	board    []leaderboard.Entry
	users    map[string]User   // id -> user
	byName   map[string]string // lower(username) -> id
}

// NewMemory constructs an empty in-memory Backend.
func NewMemory() Backend {
	return &memory{
		profiles: make(map[string][]byte),
		users:    make(map[string]User),
		byName:   make(map[string]string),
	}
}

func (m *memory) Get(ctx context.Context, owner string) (economy.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return economy.Decode(m.profiles[owner])
}

func (m *memory) Update(ctx context.Context, owner string, fn func(p *economy.Profile) error) (economy.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := economy.Decode(m.profiles[owner])
	if err != nil {
		return economy.Profile{}, err
	}
	if err := fn(&p); err != nil {
		return economy.Profile{}, err
	}
	b, err := p.Encode()
	if err != nil {
		return economy.Profile{}, err
	}
	m.profiles[owner] = b
	return p, nil
}

func (m *memory) ClaimProfile(ctx context.Context, from, to string) error {
	if from == "" || to == "" || from == to {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.profiles[from]
	if !ok {
		return nil
	}
	if _, taken := m.profiles[to]; taken {
		return nil
	}
	m.profiles[to] = doc
	delete(m.profiles, from)
	return nil
}

func (m *memory) Top(ctx context.Context) ([]leaderboard.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]leaderboard.Entry{}, m.board...), nil
}

func (m *memory) Add(ctx context.Context, e leaderboard.Entry) ([]leaderboard.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.board = leaderboard.Insert(m.board, e)
	return append([]leaderboard.Entry{}, m.board...), nil
}

func (m *memory) CreateUser(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(u.Username)
	if _, ok := m.byName[key]; ok {
		return ErrUsernameTaken
	}
	m.users[u.ID] = u
	m.byName[key] = u.ID
	return nil
}

func (m *memory) UserByName(ctx context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[strings.ToLower(username)]
	if !ok {
		return User{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *memory) UserByID(ctx context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memory) Close() error { return nil }
