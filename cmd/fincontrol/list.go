package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/willscaff1/fincontrol/internal/cli"
	"github.com/willscaff1/fincontrol/internal/engine"
	"github.com/willscaff1/fincontrol/internal/model"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a month's transactions",
		Long: `List every transaction in a calendar month with income/expense totals.

Browsing a month materializes any recurring occurrences it is still missing,
so recurring obligations appear without any separate generation step.`,
		RunE: runList,
	}

	cmd.Flags().StringP("month", "m", "", "month to list (format: 2006-01, default current)")

	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
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

	listing, err := eng.ListMonth(ctx, currentUser(), month, year)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Transactions for %04d-%02d", year, month)))

	if len(listing.Transactions) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No transactions this month."))
		return nil
	}

	fmt.Println(renderListing(listing))
	return nil
}

func renderListing(listing *engine.MonthListing) string {
	var b strings.Builder

	header := fmt.Sprintf("%-12s %-34s %-12s %10s", "Date", "Description", "Category", "Amount")
	b.WriteString(cli.TableHeaderStyle.Render(header))
	b.WriteString("\n")

	for _, txn := range listing.Transactions {
		amount := txn.Amount.StringFixed(2)
		style := cli.ExpenseStyle
		if txn.Direction == model.DirectionIncome {
			style = cli.IncomeStyle
		} else {
			amount = "-" + amount
		}

		row := fmt.Sprintf("%-12s %-34s %-12s %10s",
			txn.Date.Format("2006-01-02"),
			truncate(annotate(txn), 34),
			truncate(txn.Category, 12),
			style.Render(amount))
		b.WriteString(cli.TableCellStyle.Render(row))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Income:  %s\n", cli.IncomeStyle.Render(listing.Income.StringFixed(2))))
	b.WriteString(fmt.Sprintf("Expense: %s\n", cli.ExpenseStyle.Render(listing.Expense.StringFixed(2))))
	b.WriteString(fmt.Sprintf("Net:     %s\n", listing.Net.StringFixed(2)))
	return b.String()
}

// annotate marks generated and installment rows so their origin is visible
// in the listing.
func annotate(txn model.Transaction) string {
	switch txn.Role() {
	case model.RoleInstance:
		return txn.Description + " ↻"
	default:
		return txn.Description
	}
}

// truncate shortens s to at most max runes; descriptions are free text, so
// cutting on bytes could split a multibyte rune.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
