package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gatekeep/authserver/types"
	"github.com/samber/oops"
)

// SchemaMigrator brings the users schema up to date.
type SchemaMigrator interface {
	Up() error
}

// UserStore persists users and verifies their passwords. Every call checks a
// connection out of the pool and returns it before the call ends.
type UserStore struct {
	db      *sql.DB
	dialect Dialect
	schema  SchemaMigrator
	hasher  PasswordHasher
	logger  *slog.Logger
}

func NewUserStore(db *sql.DB, dialect Dialect, schema SchemaMigrator, hasher PasswordHasher, logger *slog.Logger) *UserStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserStore{
		db:      db,
		dialect: dialect,
		schema:  schema,
		hasher:  hasher,
		logger:  logger.With("component", "user_store"),
	}
}

// Initialize ensures the database is reachable and the users schema exists.
// It is safe to call repeatedly.
func (s *UserStore) Initialize(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storageError(err, "ping database")
	}
	if s.schema != nil {
		if err := s.schema.Up(); err != nil {
			return storageError(err, "apply schema")
		}
	}
	s.logger.InfoContext(ctx, "user schema ready", "dialect", s.dialect.Name)
	return nil
}

// CreateUser hashes password and inserts a new user. The username is stored
// exactly as given.
func (s *UserStore) CreateUser(ctx context.Context, username, password string) (types.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return types.User{}, oops.Code("USER_HASH_FAILED").
			With("operation", "hash password").
			With("username", username).
			Wrap(fmt.Errorf("%w: %w", ErrHashingFailure, err))
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return types.User{}, storageError(err, "acquire connection")
	}
	defer conn.Close()

	user := types.User{Username: username, PasswordHash: hash}
	if err := conn.QueryRowContext(ctx, s.dialect.insertUser, username, hash).Scan(&user.ID); err != nil {
		if s.dialect.isUniqueViolation(err) {
			return types.User{}, oops.Code("USER_DUPLICATE").
				With("username", username).
				Wrap(ErrDuplicateUsername)
		}
		return types.User{}, storageError(err, "insert user")
	}
	return user, nil
}

// ValidateUser reports whether password matches the stored hash for
// username. An unknown username and a wrong password both yield false; a
// failing comparator also yields false and is logged.
func (s *UserStore) ValidateUser(ctx context.Context, username, password string) (bool, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Burn the same bcrypt work as a real comparison.
			_, _ = s.hasher.Verify(password, s.hasher.DummyHash())
			return false, nil
		}
		return false, err
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.logger.WarnContext(ctx, "password verification error treated as mismatch",
			"user_id", user.ID,
			"error", err,
		)
		return false, nil
	}
	return ok, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.getOne(ctx, s.dialect.selectByUsername, username, "select user by username")
}

func (s *UserStore) getOne(ctx context.Context, query string, arg any, operation string) (types.User, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return types.User{}, storageError(err, "acquire connection")
	}
	defer conn.Close()

	var user types.User
	err = conn.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, storageError(err, operation)
	}
	return user, nil
}

func storageError(err error, operation string) error {
	return oops.Code("STORAGE_UNAVAILABLE").
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", ErrStorageUnavailable, err))
}
