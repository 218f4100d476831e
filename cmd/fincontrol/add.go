package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/willscaff1/fincontrol/internal/cli"
	"github.com/willscaff1/fincontrol/internal/engine"
	"github.com/willscaff1/fincontrol/internal/model"
)

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <description>",
		Short: "Add a transaction",
		Long: `Add a plain, recurring or installment transaction.

A recurring transaction creates a template anchored on the given date's
day-of-month; future months materialize one occurrence each as you browse
them. An installment purchase creates all parcels up front, one month apart;
the amount is the value of each parcel, not the purchase total.`,
		Args: cobra.ExactArgs(1),
		RunE: runAdd,
	}

	cmd.Flags().StringP("amount", "a", "", "transaction amount (required)")
	cmd.Flags().StringP("direction", "f", "expense", "flow direction (income, expense)")
	cmd.Flags().StringP("category", "c", "", "free-text category")
	cmd.Flags().StringP("method", "m", "", "payment method (pix, debit, credit)")
	cmd.Flags().String("account", "", "bank or card reference")
	cmd.Flags().StringP("date", "d", "", "occurrence date (format: 2006-01-02, default today)")
	cmd.Flags().BoolP("recurring", "r", false, "create a monthly recurring transaction")
	cmd.Flags().IntP("installments", "i", 0, "split into N monthly parcels (N >= 2)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.MarkFlagsMutuallyExclusive("recurring", "installments")

	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	amountStr, _ := cmd.Flags().GetString("amount")
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", amountStr, err)
	}

	dateStr, _ := cmd.Flags().GetString("date")
	date, err := parseDate(dateStr)
	if err != nil {
		return err
	}

	direction, _ := cmd.Flags().GetString("direction")
	category, _ := cmd.Flags().GetString("category")
	method, _ := cmd.Flags().GetString("method")
	account, _ := cmd.Flags().GetString("account")
	recurring, _ := cmd.Flags().GetBool("recurring")
	installments, _ := cmd.Flags().GetInt("installments")

	fields := engine.TransactionFields{
		Description:   args[0],
		Amount:        amount,
		Direction:     model.Direction(direction),
		Category:      category,
		PaymentMethod: model.PaymentMethod(method),
		AccountRef:    account,
	}

	eng, store, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	switch {
	case recurring:
		template, first, createErr := eng.CreateRecurring(ctx, currentUser(), fields, date)
		if createErr != nil {
			return createErr
		}
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recurring %q created, repeating on day %d (first occurrence %s)",
			template.Description, template.RecurringDay, first.Date.Format("2006-01-02"))))

	case installments > 0:
		parcels, createErr := eng.CreateInstallments(ctx, currentUser(), fields, date, installments)
		if createErr != nil {
			return createErr
		}
		last := parcels[len(parcels)-1]
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("%d parcels of %s created, %s through %s",
			len(parcels), amount.StringFixed(2),
			parcels[0].Date.Format("2006-01-02"), last.Date.Format("2006-01-02"))))

	default:
		txn, createErr := eng.CreatePlain(ctx, currentUser(), fields, date)
		if createErr != nil {
			return createErr
		}
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Transaction %q added on %s",
			txn.Description, txn.Date.Format("2006-01-02"))))
	}

	return nil
}
