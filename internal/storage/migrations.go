package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					description TEXT NOT NULL,
					amount TEXT NOT NULL,
					direction TEXT NOT NULL,
					category TEXT NOT NULL DEFAULT '',
					payment_method TEXT NOT NULL DEFAULT '',
					account_ref TEXT NOT NULL DEFAULT '',
					date DATETIME NOT NULL,
					is_recurring_template INTEGER NOT NULL DEFAULT 0,
					recurring_day INTEGER NOT NULL DEFAULT 0,
					recurring_parent_id TEXT NOT NULL DEFAULT '',
					is_installment INTEGER NOT NULL DEFAULT 0,
					installment_number INTEGER NOT NULL DEFAULT 0,
					total_installments INTEGER NOT NULL DEFAULT 0,
					installment_parent_id TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_transactions_user_date ON transactions(user_id, date)`,
				`CREATE INDEX idx_transactions_recurring_parent ON transactions(recurring_parent_id) WHERE recurring_parent_id != ''`,
				`CREATE INDEX idx_transactions_installment_parent ON transactions(installment_parent_id) WHERE installment_parent_id != ''`,
				`CREATE INDEX idx_transactions_templates ON transactions(user_id) WHERE is_recurring_template = 1`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Unique instance per template and month",
		Up: func(tx *sql.Tx) error {
			// Dates are stored as UTC text, so the first seven characters
			// are the calendar month. The store itself then rejects a
			// second instance for the same (template, month) even if the
			// in-process guard is bypassed.
			query := `CREATE UNIQUE INDEX idx_transactions_template_month
				ON transactions(recurring_parent_id, substr(date, 1, 7))
				WHERE recurring_parent_id != ''`
			if _, err := tx.Exec(query); err != nil {
				return fmt.Errorf("failed to execute query: %w", err)
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
