// internal/store/sqlite.go
//
// SQLite Backend (default driver).
// Responsibilities:
//   - Open the database file with safe defaults (WAL, busy timeout, foreign
//     keys, immediate write transactions).
//   - Apply embedded migrations (idempotent, recorded in _migrations).
//   - Profiles, leaderboard and users on top of database/sql.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/lemonparty/internal/economy"
	"github.com/robalobadob/lemonparty/internal/leaderboard"
)

// SQLite implements Backend.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if missing) the database at path and migrates it.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := migrateSQLite(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// openDB ensures the parent directory exists, then opens with busy timeout,
// WAL journaling and BEGIN IMMEDIATE so read-modify-write transactions
// never fail to upgrade their lock.
func openDB(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

func migrateSQLite(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}
	files, err := loadMigrations("sqlite")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	for _, m := range files {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, m.name).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", m.name).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		if selfManaged(m.sql) {
			if _, err := db.Exec(m.sql); err != nil {
				return fmt.Errorf("apply %s: %w", m.name, err)
			}
			if _, err := db.Exec(`INSERT INTO _migrations(name) VALUES (?)`, m.name); err != nil {
				return fmt.Errorf("record %s: %w", m.name, err)
			}
			log.Info().Str("migration", m.name).Msg("applied (self-managed)")
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", m.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, m.name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", m.name, err)
		}
		log.Info().Str("migration", m.name).Msg("applied")
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

/* ------------------------------ profiles ------------------------------- */

func (s *SQLite) Get(ctx context.Context, owner string) (economy.Profile, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM profiles WHERE owner=?`, owner).Scan(&doc)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return economy.Profile{}, fmt.Errorf("select profile: %w", err)
	}
	return economy.Decode([]byte(doc))
}

func (s *SQLite) Update(ctx context.Context, owner string, fn func(p *economy.Profile) error) (economy.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return economy.Profile{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var doc string
	err = tx.QueryRowContext(ctx, `SELECT data FROM profiles WHERE owner=?`, owner).Scan(&doc)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return economy.Profile{}, fmt.Errorf("select profile: %w", err)
	}
	p, err := economy.Decode([]byte(doc))
	if err != nil {
		return economy.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	if err := fn(&p); err != nil {
		return economy.Profile{}, err
	}
	b, err := p.Encode()
	if err != nil {
		return economy.Profile{}, err
	}
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO profiles (owner, data, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(owner) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`,
		owner, string(b), time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return economy.Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return economy.Profile{}, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

func (s *SQLite) ClaimProfile(ctx context.Context, from, to string) error {
	if from == "" || to == "" || from == to {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
        UPDATE profiles SET owner=?
        WHERE owner=? AND NOT EXISTS (SELECT 1 FROM profiles WHERE owner=?)`,
		to, from, to,
	)
	if err != nil {
		return fmt.Errorf("claim profile: %w", err)
	}
	return nil
}

/* ----------------------------- leaderboard ----------------------------- */

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func topEntries(ctx context.Context, q queryer) ([]leaderboard.Entry, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT name, score, level, created_ms
        FROM leaderboard
        ORDER BY score DESC, id ASC
        LIMIT ?`, leaderboard.MaxEntries,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]leaderboard.Entry, 0, leaderboard.MaxEntries)
	for rows.Next() {
		var e leaderboard.Entry
		if err := rows.Scan(&e.Name, &e.Score, &e.Level, &e.Date); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) Top(ctx context.Context) ([]leaderboard.Entry, error) {
	return topEntries(ctx, s.db)
}

// Add inserts the entry and prunes everything below the top MaxEntries.
func (s *SQLite) Add(ctx context.Context, e leaderboard.Entry) ([]leaderboard.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO leaderboard (name, score, level, created_ms) VALUES (?, ?, ?, ?)`,
		e.Name, e.Score, e.Level, e.Date,
	); err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
        DELETE FROM leaderboard WHERE id NOT IN (
            SELECT id FROM leaderboard ORDER BY score DESC, id ASC LIMIT ?
        )`, leaderboard.MaxEntries,
	); err != nil {
		return nil, fmt.Errorf("prune leaderboard: %w", err)
	}
	out, err := topEntries(ctx, tx)
	if err != nil {
		return nil, err
	}
	return out, tx.Commit()
}

/* -------------------------------- users -------------------------------- */

func (s *SQLite) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt.UTC().Format(time.RFC3339),
	)
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return ErrUsernameTaken
	}
	return err
}

func (s *SQLite) UserByName(ctx context.Context, username string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username=?`, username))
}

func (s *SQLite) UserByID(ctx context.Context, id string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id=?`, id))
}

func scanUser(row *sql.Row) (User, error) {
	var (
		u       User
		created string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return u, nil
}
