package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/willscaff1/fincontrol/internal/config"
	"github.com/willscaff1/fincontrol/internal/engine"
	"github.com/willscaff1/fincontrol/internal/lock"
	"github.com/willscaff1/fincontrol/internal/storage"
)

// openEngine opens the configured database, brings its schema up to date and
// wires the transaction engine over it. The caller must Close the returned
// storage.
func openEngine(ctx context.Context) (*engine.TransactionEngine, *storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(config.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return engine.New(store, lock.NewTable()), store, nil
}

// currentUser returns the user id owning the transactions.
func currentUser() string {
	if user := viper.GetString("user.id"); user != "" {
		return user
	}
	return "local"
}

// parseDate parses a 2006-01-02 date string, defaulting to today when empty.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want format 2006-01-02): %w", value, err)
	}
	return date, nil
}

// parsePeriod parses a 2006-01 month string, defaulting to the current month
// when empty.
func parsePeriod(value string) (month, year int, err error) {
	if value == "" {
		now := time.Now()
		return int(now.Month()), now.Year(), nil
	}
	period, err := time.Parse("2006-01", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q (want format 2006-01): %w", value, err)
	}
	return int(period.Month()), period.Year(), nil
}
