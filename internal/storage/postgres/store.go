// Package postgres implements storage.UserStore on top of a pgx connection
// pool. Email uniqueness is enforced by a unique index on lower(email), so
// concurrent creates for the same address resolve inside the database.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/avelldiaz/authbase/internal/models"
	"github.com/avelldiaz/authbase/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// querier is the subset of pgxpool.Pool the store uses. pgxmock satisfies
// it, which keeps the store testable without a database.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ storage.UserStore = (*Store)(nil)

// Store provides Postgres-backed persistence for users.
type Store struct {
	db    querier
	close func()
}

// NewStore runs migrations and opens a connection pool.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if err := runMigrations(ctx, databaseURL); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return &Store{db: pool, close: pool.Close}, nil
}

// NewStoreWithQuerier wraps an existing querier, typically a pgxmock pool
// in tests.
func NewStoreWithQuerier(db querier) *Store {
	return &Store{db: db, close: func() {}}
}

// Close releases database resources.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// runMigrations applies the embedded goose migrations over a database/sql
// handle, which goose requires; the handle is closed before the pool opens.
func runMigrations(ctx context.Context, databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

const safeColumns = `id, email, full_name, created_at, updated_at`

// Create inserts a new user row. The caller supplies an already-hashed
// password; a unique violation maps to storage.ErrAlreadyExists.
func (s *Store) Create(ctx context.Context, user models.User) (models.SafeUser, error) {
	const query = `
		INSERT INTO users (id, email, full_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + safeColumns

	row := s.db.QueryRow(ctx, query,
		user.ID, strings.ToLower(user.Email), user.FullName,
		user.PasswordHash, user.CreatedAt, user.UpdatedAt)

	created, err := scanSafeUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return models.SafeUser{}, storage.ErrAlreadyExists
		}
		return models.SafeUser{}, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

// FindByEmail fetches a user's safe projection by email, case-insensitively.
// The password hash is never selected on this path.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.SafeUser, error) {
	const query = `
		SELECT ` + safeColumns + `
		FROM users
		WHERE lower(email) = lower($1)`

	user, err := scanSafeUser(s.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SafeUser{}, storage.ErrNotFound
		}
		return models.SafeUser{}, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

// FindByEmailWithHash fetches the full user record for credential
// verification. This is the only read that loads the password hash.
func (s *Store) FindByEmailWithHash(ctx context.Context, email string) (models.User, error) {
	const query = `
		SELECT id, email, full_name, password_hash, created_at, updated_at
		FROM users
		WHERE lower(email) = lower($1)`

	var user models.User
	err := s.db.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.FullName,
		&user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, fmt.Errorf("find user with hash: %w", err)
	}
	return user, nil
}

// FindByID fetches a user's safe projection by ID.
func (s *Store) FindByID(ctx context.Context, id string) (models.SafeUser, error) {
	const query = `
		SELECT ` + safeColumns + `
		FROM users
		WHERE id = $1`

	user, err := scanSafeUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SafeUser{}, storage.ErrNotFound
		}
		return models.SafeUser{}, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

func scanSafeUser(row pgx.Row) (models.SafeUser, error) {
	var user models.SafeUser
	err := row.Scan(&user.ID, &user.Email, &user.FullName, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return models.SafeUser{}, err
	}
	return user, nil
}
