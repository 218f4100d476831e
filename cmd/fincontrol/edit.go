package main

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/willscaff1/fincontrol/internal/cli"
	"github.com/willscaff1/fincontrol/internal/common"
	"github.com/willscaff1/fincontrol/internal/model"
	"github.com/willscaff1/fincontrol/internal/service"
)

func editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <transaction-id>",
		Short: "Edit a transaction",
		Long: `Edit a transaction's fields. Only the flags you pass change.

With --series on a recurring transaction the edit also reaches the template
and every generated occurrence; occurrence dates stay untouched since each
belongs to its own month. A transaction's role (template, occurrence, parcel)
can never be changed by an edit.`,
		Args: cobra.ExactArgs(1),
		RunE: runEdit,
	}

	cmd.Flags().String("description", "", "new description")
	cmd.Flags().StringP("amount", "a", "", "new amount")
	cmd.Flags().StringP("direction", "f", "", "new flow direction (income, expense)")
	cmd.Flags().StringP("category", "c", "", "new category")
	cmd.Flags().StringP("method", "m", "", "new payment method (pix, debit, credit)")
	cmd.Flags().String("account", "", "new bank or card reference")
	cmd.Flags().StringP("date", "d", "", "new occurrence date (format: 2006-01-02)")
	cmd.Flags().BoolP("series", "s", false, "apply the edit to the whole recurring series")

	return cmd
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := args[0]

	var upd service.TransactionUpdate

	if cmd.Flags().Changed("description") {
		description, _ := cmd.Flags().GetString("description")
		upd.Description = &description
	}
	if cmd.Flags().Changed("amount") {
		amountStr, _ := cmd.Flags().GetString("amount")
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", amountStr, err)
		}
		upd.Amount = &amount
	}
	if cmd.Flags().Changed("direction") {
		directionStr, _ := cmd.Flags().GetString("direction")
		direction := model.Direction(directionStr)
		upd.Direction = &direction
	}
	if cmd.Flags().Changed("category") {
		category, _ := cmd.Flags().GetString("category")
		upd.Category = &category
	}
	if cmd.Flags().Changed("method") {
		methodStr, _ := cmd.Flags().GetString("method")
		method := model.PaymentMethod(methodStr)
		upd.PaymentMethod = &method
	}
	if cmd.Flags().Changed("account") {
		account, _ := cmd.Flags().GetString("account")
		upd.AccountRef = &account
	}
	if cmd.Flags().Changed("date") {
		dateStr, _ := cmd.Flags().GetString("date")
		date, err := parseDate(dateStr)
		if err != nil {
			return err
		}
		upd.Date = &date
	}

	if upd.IsEmpty() {
		return fmt.Errorf("nothing to change: pass at least one field flag")
	}

	series, _ := cmd.Flags().GetBool("series")

	eng, store, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txn, err := eng.UpdateTransaction(ctx, id, currentUser(), upd, series)
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			fmt.Println(cli.FormatWarning("Another edit of this transaction is in flight; try again."))
		}
		return err
	}

	scope := "transaction"
	if series && txn.IsSeriesLinked() {
		scope = "series"
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated %s %q", scope, txn.Description)))
	return nil
}
