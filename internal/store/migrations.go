package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// migrations is the ordered list of schema migrations. The schema version
// (PRAGMA user_version) equals the number of applied migrations.
var migrations = []string{
	// 1: core entities
	`
	CREATE TABLE categories (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		color      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE todos (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		note        TEXT NOT NULL DEFAULT '',
		category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
		due_on      DATE NOT NULL,
		done        INTEGER NOT NULL DEFAULT 0,
		done_at     TIMESTAMP,
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	);
	CREATE INDEX idx_todos_due_on ON todos(due_on);
	CREATE INDEX idx_todos_category ON todos(category_id);
	`,
	// 2: quiz content and per-user progress
	`
	CREATE TABLE quiz_questions (
		id         TEXT PRIMARY KEY,
		prompt     TEXT NOT NULL,
		answer     TEXT NOT NULL,
		tags       TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE quiz_progress (
		user_id     TEXT NOT NULL,
		question_id TEXT NOT NULL REFERENCES quiz_questions(id) ON DELETE CASCADE,
		repetition  INTEGER NOT NULL DEFAULT 0,
		rung        INTEGER NOT NULL DEFAULT 0,
		understood  INTEGER NOT NULL DEFAULT 0,
		answered    INTEGER NOT NULL DEFAULT 0,
		correct     INTEGER NOT NULL DEFAULT 0,
		last_review TIMESTAMP,
		next_review TIMESTAMP,
		PRIMARY KEY (user_id, question_id)
	);
	CREATE INDEX idx_quiz_progress_next ON quiz_progress(user_id, next_review);
	`,
	// 3: massage tickets
	`
	CREATE TABLE tickets (
		id         TEXT PRIMARY KEY,
		holder     TEXT NOT NULL,
		total_uses INTEGER NOT NULL,
		remaining  INTEGER NOT NULL CHECK (remaining >= 0),
		expires_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE ticket_uses (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		ticket_id TEXT NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
		used_at   TIMESTAMP NOT NULL,
		note      TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX idx_ticket_uses_ticket ON ticket_uses(ticket_id);
	`,
	// 4: image metadata
	`
	CREATE TABLE images (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		mime       TEXT NOT NULL,
		size       INTEGER NOT NULL,
		sha256     TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL
	);
	`,
}

// migrate applies pending migrations inside transactions.
func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than this binary supports (%d)", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		// PRAGMA does not accept bind parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to bump schema version to %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", i+1, err)
		}
		s.logger.Info("Applied schema migration", zap.Int("version", i+1))
	}
	return nil
}
