package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willscaff1/fincontrol/internal/cli"
)

func materializeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Generate recurring occurrences for a month",
		Long: `Ensure every recurring transaction has its occurrence for the given
month. Browsing with "list" does this implicitly; this command exists for
scripting and debugging. Months before the current one are skipped; use
"backfill" to repair historical gaps.`,
		RunE: runMaterialize,
	}

	cmd.Flags().StringP("month", "m", "", "month to materialize (format: 2006-01, default current)")

	return cmd
}

func runMaterialize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	monthStr, _ := cmd.Flags().GetString("month")
	month, year, err := parsePeriod(monthStr)
	if err != nil {
		return err
	}

	eng, store, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := eng.EnsureMaterialized(ctx, currentUser(), month, year); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Materialized recurring occurrences for %04d-%02d", year, month)))
	return nil
}
