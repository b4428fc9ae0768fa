// internal/store/store.go
//
// Persistence contracts shared by the storage backends.
//
// A Backend stores three things:
//   - profiles:    one JSON document per owner (economy.Repository),
//   - leaderboard: the top entries (leaderboard.Store),
//   - users:       accounts for signup/login (Users).
//
// Backends: memory (tests, throwaway servers), sqlite (default) and
// postgres. Live game sessions are not persisted.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/robalobadob/lemonparty/internal/economy"
	"github.com/robalobadob/lemonparty/internal/leaderboard"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username taken")
)

// User is an account row.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Users stores accounts. Usernames are unique case-insensitively.
type Users interface {
	CreateUser(ctx context.Context, u User) error
	UserByName(ctx context.Context, username string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
}

// Backend is everything the server persists.
type Backend interface {
	economy.Repository
	leaderboard.Store
	Users

	// ClaimProfile moves the profile stored under from to to, unless to
	// already has one. Used when a guest signs up or logs in.
	ClaimProfile(ctx context.Context, from, to string) error
	Close() error
}
