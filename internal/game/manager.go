// internal/game/manager.go
//
// In-memory registry of live sessions, keyed by uuid and scoped to an owner.
// Sessions idle for longer than the TTL are closed by Run.
package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/lemonparty/internal/clock"
	"github.com/robalobadob/lemonparty/internal/economy"
	"github.com/robalobadob/lemonparty/internal/flavor"
	"github.com/robalobadob/lemonparty/internal/leaderboard"
	"github.com/robalobadob/lemonparty/internal/level"
	"github.com/robalobadob/lemonparty/internal/match"
)

// DefaultTTL is how long an untouched session survives.
const DefaultTTL = 30 * time.Minute

// Deps are the collaborators shared by every session. Catalog is required.
type Deps struct {
	Catalog *level.Catalog
	Ledger  *economy.Ledger    // optional; without it no coins move
	Board   *leaderboard.Board // optional; without it scores are refused
	Teller  *flavor.Teller     // optional; defaults to the static texts

	NewBuilder func() match.BoardBuilder // defaults to a time-seeded deck
	Interval   time.Duration             // countdown period, defaults to 1s
	TTL        time.Duration
	Now        func() time.Time
}

// Manager owns the live sessions.
type Manager struct {
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager builds an empty Manager.
func NewManager(deps Deps) *Manager {
	if deps.TTL <= 0 {
		deps.TTL = DefaultTTL
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Interval <= 0 {
		deps.Interval = clock.DefaultInterval
	}
	return &Manager{deps: deps, sessions: make(map[string]*Session)}
}

// Create starts a session for owner and deals level 1.
func (m *Manager) Create(ctx context.Context, owner string) (*Session, error) {
	opts := match.Options{Catalog: m.deps.Catalog}
	if m.deps.NewBuilder != nil {
		opts.Builder = m.deps.NewBuilder()
	}
	if m.deps.Ledger != nil {
		opts.Wallet = m.deps.Ledger.Account(owner)
	}
	engine := match.New(opts)

	id := uuid.NewString()
	s := &Session{
		ID:       id,
		Owner:    owner,
		engine:   engine,
		board:    m.deps.Board,
		teller:   m.deps.Teller,
		logger:   log.With().Str("session", id).Str("owner", owner).Logger(),
		now:      m.deps.Now,
		lastSeen: m.deps.Now(),
	}
	s.loop = clock.New(engine,
		clock.WithInterval(m.deps.Interval),
		clock.WithLogger(s.logger),
		clock.WithAfterStep(func(context.Context) { s.sync() }),
	)
	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		if err := s.loop.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("session loop failed")
		}
	}()

	if _, err := s.Restart(ctx); err != nil {
		s.Close()
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	s.logger.Info().Msg("session created")
	return s, nil
}

// Get returns owner's session id.
func (m *Manager) Get(id, owner string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.Owner != owner {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete closes and forgets owner's session id.
func (m *Manager) Delete(id, owner string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.Owner != owner {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	s.Close()
	s.logger.Info().Msg("session closed")
	return nil
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions not touched since now minus the TTL and reports
// how many went.
func (m *Manager) Sweep(now time.Time) int {
	cutoff := now.Add(-m.deps.TTL)
	var stale []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		log.Info().Int("count", len(stale)).Msg("expired idle sessions")
	}
	return len(stale)
}

// Run sweeps periodically until ctx is done, then closes every session.
func (m *Manager) Run(ctx context.Context) {
	t := time.NewTicker(m.deps.TTL / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return
		case <-t.C:
			m.Sweep(m.deps.Now())
		}
	}
}

// CloseAll stops every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
