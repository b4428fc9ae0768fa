// internal/store/postgres.go
//
// Postgres Backend (STORE_DRIVER=postgres).
//   - Connection pool: pgx/v5 pgxpool.
//   - Queries: squirrel builders with dollar placeholders.
//   - Transactions: go-transaction-manager; repositories pick up the
//     transaction from the context, so the same code runs inside and
//     outside Manager.Do.
//   - Profile updates lock the row with SELECT ... FOR UPDATE and write back
//     with update-then-insert.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/lemonparty/internal/economy"
	"github.com/robalobadob/lemonparty/internal/leaderboard"
)

const (
	tableProfiles    = "profiles"
	tableLeaderboard = "leaderboard"
	tableUsers       = "users"

	colOwner        = "owner"
	colData         = "data"
	colUpdatedAt    = "updated_at"
	colID           = "id"
	colName         = "name"
	colScore        = "score"
	colLevel        = "level"
	colCreatedMs    = "created_ms"
	colUsername     = "username"
	colPasswordHash = "password_hash"
	colCreatedAt    = "created_at"

	pgUniqueViolation = "23505"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Postgres implements Backend.
type Postgres struct {
	pool      *pgxpool.Pool
	txManager trm.Manager
	getter    *trmpgx.CtxGetter
}

// OpenPostgres connects, pings and migrates the database at dsn.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	m, err := manager.New(trmpgx.NewDefaultFactory(pool))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("tx manager: %w", err)
	}
	p := &Postgres{pool: pool, txManager: m, getter: trmpgx.DefaultCtxGetter}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// conn returns the transaction stored in ctx, or the pool.
func (p *Postgres) conn(ctx context.Context) trmpgx.Tr {
	return p.getter.DefaultTrOrDB(ctx, p.pool)
}

func (p *Postgres) migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}
	files, err := loadMigrations("postgres")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	for _, m := range files {
		err := p.txManager.Do(ctx, func(ctx context.Context) error {
			var done int
			err := p.conn(ctx).QueryRow(ctx, `SELECT 1 FROM _migrations WHERE name=$1`, m.name).Scan(&done)
			if err == nil {
				log.Debug().Str("migration", m.name).Msg("already applied")
				return nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("query _migrations: %w", err)
			}
			if _, err := p.conn(ctx).Exec(ctx, m.sql); err != nil {
				return fmt.Errorf("apply %s: %w", m.name, err)
			}
			if _, err := p.conn(ctx).Exec(ctx, `INSERT INTO _migrations(name) VALUES ($1)`, m.name); err != nil {
				return fmt.Errorf("record %s: %w", m.name, err)
			}
			log.Info().Str("migration", m.name).Msg("applied")
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

/* ------------------------------ profiles ------------------------------- */

func (p *Postgres) selectProfile(ctx context.Context, owner string, lock bool) (economy.Profile, error) {
	query := psql.Select(colData).
		From(tableProfiles).
		Where(sq.Eq{colOwner: owner})
	if lock {
		query = query.Suffix("FOR UPDATE")
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return economy.Profile{}, err
	}
	var doc []byte
	err = p.conn(ctx).QueryRow(ctx, sqlStr, args...).Scan(&doc)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return economy.Profile{}, fmt.Errorf("select profile: %w", err)
	}
	return economy.Decode(doc)
}

func (p *Postgres) Get(ctx context.Context, owner string) (economy.Profile, error) {
	return p.selectProfile(ctx, owner, false)
}

func (p *Postgres) Update(ctx context.Context, owner string, fn func(prof *economy.Profile) error) (economy.Profile, error) {
	var out economy.Profile
	err := p.txManager.Do(ctx, func(ctx context.Context) error {
		prof, err := p.selectProfile(ctx, owner, true)
		if err != nil {
			return err
		}
		if err := fn(&prof); err != nil {
			return err
		}
		doc, err := prof.Encode()
		if err != nil {
			return err
		}
		if err := p.saveProfile(ctx, owner, doc); err != nil {
			return err
		}
		out = prof
		return nil
	})
	if err != nil {
		return economy.Profile{}, err
	}
	return out, nil
}

// saveProfile updates the row, inserting it when nothing was updated.
func (p *Postgres) saveProfile(ctx context.Context, owner string, doc []byte) error {
	now := time.Now().UTC()
	sqlStr, args, err := psql.Update(tableProfiles).
		Set(colData, string(doc)).
		Set(colUpdatedAt, now).
		Where(sq.Eq{colOwner: owner}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := p.conn(ctx).Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if res.RowsAffected() > 0 {
		return nil
	}
	sqlStr, args, err = psql.Insert(tableProfiles).
		Columns(colOwner, colData, colUpdatedAt).
		Values(owner, string(doc), now).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := p.conn(ctx).Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (p *Postgres) ClaimProfile(ctx context.Context, from, to string) error {
	if from == "" || to == "" || from == to {
		return nil
	}
	sqlStr, args, err := psql.Update(tableProfiles).
		Set(colOwner, to).
		Where(sq.Eq{colOwner: from}).
		Where(sq.Expr("NOT EXISTS (SELECT 1 FROM "+tableProfiles+" WHERE "+colOwner+" = ?)", to)).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := p.conn(ctx).Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("claim profile: %w", err)
	}
	return nil
}

/* ----------------------------- leaderboard ----------------------------- */

func (p *Postgres) Top(ctx context.Context) ([]leaderboard.Entry, error) {
	sqlStr, args, err := psql.Select(colName, colScore, colLevel, colCreatedMs).
		From(tableLeaderboard).
		OrderBy(colScore+" DESC", colID+" ASC").
		Limit(leaderboard.MaxEntries).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := p.conn(ctx).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("select leaderboard: %w", err)
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

func (p *Postgres) Add(ctx context.Context, e leaderboard.Entry) ([]leaderboard.Entry, error) {
	var out []leaderboard.Entry
	err := p.txManager.Do(ctx, func(ctx context.Context) error {
		// serialise concurrent inserts so pruning sees a stable table
		if _, err := p.conn(ctx).Exec(ctx, "LOCK TABLE "+tableLeaderboard+" IN SHARE ROW EXCLUSIVE MODE"); err != nil {
			return fmt.Errorf("lock leaderboard: %w", err)
		}
		sqlStr, args, err := psql.Insert(tableLeaderboard).
			Columns(colName, colScore, colLevel, colCreatedMs).
			Values(e.Name, e.Score, e.Level, e.Date).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := p.conn(ctx).Exec(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}

		keep := psql.Select(colID).
			From(tableLeaderboard).
			OrderBy(colScore+" DESC", colID+" ASC").
			Limit(leaderboard.MaxEntries)
		keepSQL, _, err := keep.ToSql()
		if err != nil {
			return err
		}
		sqlStr, args, err = psql.Delete(tableLeaderboard).
			Where(colID + " NOT IN (" + keepSQL + ")").
			ToSql()
		if err != nil {
			return err
		}
		if _, err := p.conn(ctx).Exec(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("prune leaderboard: %w", err)
		}
		out, err = p.Top(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

/* -------------------------------- users -------------------------------- */

func (p *Postgres) CreateUser(ctx context.Context, u User) error {
	sqlStr, args, err := psql.Insert(tableUsers).
		Columns(colID, colUsername, colPasswordHash, colCreatedAt).
		Values(u.ID, u.Username, u.PasswordHash, u.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return err
	}
	_, err = p.conn(ctx).Exec(ctx, sqlStr, args...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrUsernameTaken
	}
	return err
}

func (p *Postgres) userWhere(ctx context.Context, where sq.Sqlizer) (User, error) {
	sqlStr, args, err := psql.Select(colID, colUsername, colPasswordHash, colCreatedAt).
		From(tableUsers).
		Where(where).
		ToSql()
	if err != nil {
		return User{}, err
	}
	var u User
	err = p.conn(ctx).QueryRow(ctx, sqlStr, args...).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (p *Postgres) UserByName(ctx context.Context, username string) (User, error) {
	return p.userWhere(ctx, sq.Expr("lower("+colUsername+") = ?", strings.ToLower(username)))
}

func (p *Postgres) UserByID(ctx context.Context, id string) (User, error) {
	return p.userWhere(ctx, sq.Eq{colID: id})
}
