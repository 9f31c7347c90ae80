package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gatekeep/authserver/config"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect holds the driver-specific SQL and error classification used by
// UserStore.
type Dialect struct {
	Name string

	insertUser       string
	selectByUsername string

	isUniqueViolation func(error) bool
}

var SQLiteDialect = Dialect{
	Name: config.DriverSQLite,
	insertUser: `
		INSERT INTO users (username, password_hash)
		VALUES (?1, ?2)
		RETURNING id`,
	selectByUsername: `
		SELECT id, username, password_hash
		FROM users
		WHERE username = ?1`,
	isUniqueViolation: isSQLiteUniqueViolation,
}

var PostgresDialect = Dialect{
	Name: config.DriverPostgres,
	insertUser: `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id`,
	selectByUsername: `
		SELECT id, username, password_hash
		FROM users
		WHERE username = $1`,
	isUniqueViolation: isPostgresUniqueViolation,
}

// DialectFor returns the dialect matching a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverSQLite, "":
		return SQLiteDialect, nil
	case config.DriverPostgres:
		return PostgresDialect, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func isSQLiteUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == pgerrcode.UniqueViolation
}
