// Package db handles SQLite initialisation and schema migrations.
//
// ────────────────────────────────────────────────────────────────────
// LEARNING NOTE: why modernc.org/sqlite instead of go-sqlite3?
// ────────────────────────────────────────────────────────────────────
// go-sqlite3 is a CGo binding and needs a C compiler on the build
// machine. modernc.org/sqlite is a pure-Go port, so the server
// cross-compiles into a scratch image without extra tooling. The only
// visible difference is the driver name: "sqlite" instead of "sqlite3".
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	// Blank import: the modernc driver registers itself with
	// database/sql under the name "sqlite" when this package loads.
	_ "modernc.org/sqlite"
)

// Open opens (or creates) the SQLite database at dsn and runs all migrations.
//
// Recommended DSN formats for modernc.org/sqlite:
//   - Production file: "talentbridge.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
//   - Tests:           "file:testXYZ?mode=memory&cache=shared&_pragma=foreign_keys(1)"
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("database ready", "dsn", dsn)
	return db, nil
}

// migrate runs each DDL statement in the schema individually, because the
// driver only executes the first statement of a multi-statement Exec.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement failed: %w\nstatement: %s", err, stmt)
		}
	}
	return nil
}

// Tables lists every table the schema creates, in creation order.
var Tables = []string{"users", "challenges", "submissions", "submission_status_history", "kv_cache"}

// schema contains every CREATE TABLE statement for the application.
//
//	users                     : students, startups and professors; "role" tells them apart.
//	challenges                : owned by one startup. Either the reward_*_place columns or
//	                            number_of_winners decide the placement slots.
//	submissions               : one row per (challenge, student); UNIQUE makes applying
//	                            idempotent. position is only set for winners (CHECK).
//	submission_status_history : append-only audit of every status change.
//	kv_cache                  : evaluator-side cache (hidden submissions) behind the
//	                            localcache storage port.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    name          TEXT NOT NULL,
    role          TEXT NOT NULL CHECK(role IN ('student','startup','professor')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS challenges (
    id                  TEXT PRIMARY KEY,
    startup_id          TEXT NOT NULL REFERENCES users(id),
    title               TEXT NOT NULL,
    description         TEXT NOT NULL DEFAULT '',
    status              TEXT NOT NULL DEFAULT 'draft'
                            CHECK(status IN ('draft','open','closed','archived')),
    deadline            DATETIME NOT NULL,
    reward_first_place  INTEGER,
    reward_second_place INTEGER,
    reward_third_place  INTEGER,
    reward_description  TEXT NOT NULL DEFAULT '',
    number_of_winners   INTEGER NOT NULL DEFAULT 1,
    max_applicants      INTEGER,
    prize_pool_paid     INTEGER NOT NULL DEFAULT 0,
    payment_status      TEXT NOT NULL DEFAULT 'unpaid'
                            CHECK(payment_status IN ('unpaid','pending','fully_paid')),
    created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS submissions (
    id                   TEXT PRIMARY KEY,
    challenge_id         TEXT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
    student_id           TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    status               TEXT NOT NULL DEFAULT 'applied'
                             CHECK(status IN ('applied','submitted','reviewed','winner','rejected')),
    rating               INTEGER CHECK(rating IS NULL OR rating BETWEEN 1 AND 10),
    feedback_comment     TEXT,
    position             INTEGER CHECK(position IS NULL OR (position BETWEEN 1 AND 3 AND status = 'winner')),
    link                 TEXT NOT NULL DEFAULT '',
    file_url             TEXT NOT NULL DEFAULT '',
    completed_outputs    TEXT NOT NULL DEFAULT '[]',
    submitted_at         DATETIME,
    is_favorite          INTEGER NOT NULL DEFAULT 0,
    is_public_on_profile INTEGER NOT NULL DEFAULT 0,
    created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (challenge_id, student_id)
);

CREATE INDEX IF NOT EXISTS idx_submissions_challenge ON submissions(challenge_id, created_at);

CREATE TABLE IF NOT EXISTS submission_status_history (
    id            TEXT PRIMARY KEY,
    submission_id TEXT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
    old_status    TEXT NOT NULL,
    new_status    TEXT NOT NULL,
    changed_by    TEXT NOT NULL,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS kv_cache (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
