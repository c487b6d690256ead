package db

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects driver name, placeholder style and schema.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

const (
	sqliteDriverName   = "sqlite"
	postgresDriverName = "pgx"

	defaultSQLitePath = "app.db"

	pgMaxOpenConns    = 25
	pgMaxIdleConns    = 25
	pgConnMaxIdleTime = 5 * time.Minute
	pgConnMaxLifetime = 30 * time.Minute
)

// ParseDialect maps a config value onto a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case SQLite, "":
		return SQLite, nil
	case Postgres, "postgresql", "pgx":
		return Postgres, nil
	default:
		return "", fmt.Errorf("unsupported db driver %q", s)
	}
}

// Rebind rewrites '?' placeholders into the dialect's style. Queries in this
// module never contain a literal '?'.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Open connects to the configured database and ensures tables exist.
func Open(d Dialect, dsn string) (*sql.DB, error) {
	switch d {
	case Postgres:
		return openPostgres(dsn)
	default:
		return openSQLite(dsn)
	}
}

func openSQLite(path string) (*sql.DB, error) {
	if path == "" {
		path = defaultSQLitePath
	}
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// Conservative pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is not great with many writers
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", strings.TrimSuffix(pragma, ";"), err)
		}
	}

	return finishOpen(db, SQLite)
}

func openPostgres(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is empty")
	}
	db, err := sql.Open(postgresDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(pgMaxOpenConns)
	db.SetMaxIdleConns(pgMaxIdleConns)
	db.SetConnMaxIdleTime(pgConnMaxIdleTime)
	db.SetConnMaxLifetime(pgConnMaxLifetime)

	return finishOpen(db, Postgres)
}

func finishOpen(db *sql.DB, d Dialect) (*sql.DB, error) {
	// Fail fast if the DB cannot be reached
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d, err)
	}
	if err := ensureSchema(db, d); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const sqliteSchemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    password TEXT NOT NULL,
    email TEXT UNIQUE,
    first_name TEXT,
    last_name TEXT,
    profile_image_url TEXT,
    token_version INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const sqliteSchemaLocations = `
CREATE TABLE IF NOT EXISTS locations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    country TEXT,
    admin1 TEXT,
    user_id INTEGER REFERENCES users(id) ON DELETE CASCADE,
    UNIQUE (user_id, latitude, longitude)
);
`

const postgresSchemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password TEXT NOT NULL,
    email TEXT UNIQUE,
    first_name TEXT,
    last_name TEXT,
    profile_image_url TEXT,
    token_version INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
`

const postgresSchemaLocations = `
CREATE TABLE IF NOT EXISTS locations (
    id SERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    latitude DOUBLE PRECISION NOT NULL,
    longitude DOUBLE PRECISION NOT NULL,
    country TEXT,
    admin1 TEXT,
    user_id INTEGER REFERENCES users(id) ON DELETE CASCADE,
    UNIQUE (user_id, latitude, longitude)
);
`

const schemaLocationsUserIndex = `CREATE INDEX IF NOT EXISTS idx_locations_user_id ON locations (user_id);`

func schemaFor(d Dialect) []string {
	if d == Postgres {
		return []string{postgresSchemaUsers, postgresSchemaLocations, schemaLocationsUserIndex}
	}
	return []string{sqliteSchemaUsers, sqliteSchemaLocations, schemaLocationsUserIndex}
}

func ensureSchema(db *sql.DB, d Dialect) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback()
	}()

	for i, stmt := range schemaFor(d) {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
