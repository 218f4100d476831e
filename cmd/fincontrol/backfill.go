package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/willscaff1/fincontrol/internal/calendar"
	"github.com/willscaff1/fincontrol/internal/cli"
)

func backfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Repair recurring occurrences over a historical month range",
		Long: `Generate missing recurring occurrences for every month in a range,
including months in the past that normal browsing never backfills.

This is an administrative repair tool: it only fills gaps, existing
occurrences are never touched or duplicated.`,
		RunE: runBackfill,
	}

	cmd.Flags().String("from", "", "first month of the range (format: 2006-01, required)")
	cmd.Flags().String("to", "", "last month of the range (format: 2006-01, default current)")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	fromStr, _ := cmd.Flags().GetString("from")
	fromMonth, fromYear, err := parsePeriod(fromStr)
	if err != nil {
		return err
	}
	toStr, _ := cmd.Flags().GetString("to")
	toMonth, toYear, err := parsePeriod(toStr)
	if err != nil {
		return err
	}

	totalMonths := (toYear-fromYear)*12 + (toMonth - fromMonth) + 1
	if totalMonths < 1 {
		return fmt.Errorf("range is empty: %04d-%02d is after %04d-%02d", fromYear, fromMonth, toYear, toMonth)
	}

	eng, store, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	bar := progressbar.NewOptions(totalMonths,
		progressbar.OptionSetDescription("Backfilling months..."),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	cursor := calendar.DateAtNoon(fromYear, fromMonth, 1)
	for i := 0; i < totalMonths; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := eng.BackfillPeriod(ctx, currentUser(), int(cursor.Month()), cursor.Year()); err != nil {
			return fmt.Errorf("backfill %04d-%02d: %w", cursor.Year(), cursor.Month(), err)
		}
		_ = bar.Add(1)
		cursor = calendar.AddMonths(cursor, 1)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Backfilled %d months", totalMonths)))
	return nil
}
