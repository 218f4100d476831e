package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willscaff1/fincontrol/internal/cli"
)

func deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <transaction-id>",
		Short: "Delete a transaction, a recurring series or an installment group",
		Long: `Delete a single transaction.

With --series on any transaction of a recurring series, the template and
every generated occurrence are removed together. With --group on any parcel,
the whole installment group is removed, anchor included.`,
		Args: cobra.ExactArgs(1),
		RunE: runDelete,
	}

	cmd.Flags().BoolP("series", "s", false, "delete the whole recurring series")
	cmd.Flags().BoolP("group", "g", false, "delete the whole installment group")
	cmd.MarkFlagsMutuallyExclusive("series", "group")

	return cmd
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := args[0]

	series, _ := cmd.Flags().GetBool("series")
	group, _ := cmd.Flags().GetBool("group")

	eng, store, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	switch {
	case series:
		count, deleteErr := eng.DeleteSeries(ctx, id, currentUser())
		if deleteErr != nil {
			return deleteErr
		}
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted recurring series: %d transactions removed", count)))

	case group:
		count, deleteErr := eng.DeleteInstallmentGroup(ctx, id, currentUser())
		if deleteErr != nil {
			return deleteErr
		}
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted installment group: %d parcels removed", count)))

	default:
		if deleteErr := eng.DeleteTransaction(ctx, id, currentUser()); deleteErr != nil {
			return deleteErr
		}
		fmt.Println(cli.FormatSuccess("Transaction deleted"))
	}

	return nil
}
