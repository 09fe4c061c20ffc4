package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens the run-history DB and ensures schema exists. The default is a
// local sqlite file next to the answer store; postgres is opt-in via DSN for
// shared setups.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:lessonbot.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/lessonbot?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  lecture_id INTEGER NOT NULL,
  lesson_name TEXT NOT NULL,
  course_id INTEGER NOT NULL,
  grade_before REAL,
  grade_after REAL,
  pages_total INTEGER NOT NULL,
  answered INTEGER NOT NULL,
  cache_hits INTEGER NOT NULL,
  recorded INTEGER NOT NULL,
  incorrect INTEGER NOT NULL,
  skipped INTEGER NOT NULL,
  started_at INTEGER NOT NULL,
  finished_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS runs_lecture_idx ON runs(lecture_id, finished_at);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS runs (
  id BIGSERIAL PRIMARY KEY,
  lecture_id BIGINT NOT NULL,
  lesson_name TEXT NOT NULL,
  course_id BIGINT NOT NULL,
  grade_before DOUBLE PRECISION,
  grade_after DOUBLE PRECISION,
  pages_total INTEGER NOT NULL,
  answered INTEGER NOT NULL,
  cache_hits INTEGER NOT NULL,
  recorded INTEGER NOT NULL,
  incorrect INTEGER NOT NULL,
  skipped INTEGER NOT NULL,
  started_at BIGINT NOT NULL,
  finished_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS runs_lecture_idx ON runs(lecture_id, finished_at);
`
