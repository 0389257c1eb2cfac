package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/serpops/plancore/pkg/domain/entities"
)

func newShipmentCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shipment",
		Short: "Edit shipment allocations against an order's ledger",
	}
	cmd.AddCommand(
		newShipmentLedgerCommand(app),
		newShipmentValidateCommand(app),
		newShipmentCreateCommand(app),
		newShipmentSetCommand(app),
		newShipmentRemoveCommand(app),
	)
	return cmd
}

func newShipmentLedgerCommand(app *App) *cobra.Command {
	var shipmentID int64
	cmd := &cobra.Command{
		Use:   "ledger <order-id>",
		Short: "Show the order's quantity reconciliation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseID(args[0])
			if err != nil {
				return err
			}
			view, err := app.Allocation.Ledger(cmd.Context(), orderID, shipmentID)
			if err != nil {
				return err
			}
			return app.Renderer.Ledger(view)
		},
	}
	cmd.Flags().Int64Var(&shipmentID, "shipment", 0, "shipment being edited, excluded from the remaining pool")
	return cmd
}

func newShipmentValidateCommand(app *App) *cobra.Command {
	var shipmentID int64
	var line, quantity string
	cmd := &cobra.Command{
		Use:   "validate <order-id>",
		Short: "Check a proposed quantity against the ledger without writing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseID(args[0])
			if err != nil {
				return err
			}
			qty, err := decimal.NewFromString(quantity)
			if err != nil {
				return fmt.Errorf("invalid quantity %q", quantity)
			}
			if err := app.Allocation.ValidateQuantity(cmd.Context(), orderID, shipmentID, line, qty); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "quantity %s on line %s is allowed\n", quantity, line)
			return nil
		},
	}
	cmd.Flags().Int64Var(&shipmentID, "shipment", 0, "shipment being edited")
	cmd.Flags().StringVar(&line, "line", "", "order line id")
	cmd.Flags().StringVar(&quantity, "quantity", "", "proposed quantity")
	cmd.MarkFlagRequired("line")
	cmd.MarkFlagRequired("quantity")
	return cmd
}

func newShipmentCreateCommand(app *App) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "create <order-id>",
		Short: "Open a new allocation document for the order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseID(args[0])
			if err != nil {
				return err
			}
			created, err := app.Allocation.CreateShipment(cmd.Context(), orderID, code)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "shipment %d created for order %d\n", created.ID, orderID)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "document code")
	return cmd
}

func newShipmentSetCommand(app *App) *cobra.Command {
	var itemID, line, quantity, lotID, facilityID string
	cmd := &cobra.Command{
		Use:   "set <shipment-id>",
		Short: "Add or replace one allocation line, guarded by the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shipmentID, err := parseID(args[0])
			if err != nil {
				return err
			}
			qty, err := decimal.NewFromString(quantity)
			if err != nil {
				return fmt.Errorf("invalid quantity %q", quantity)
			}
			item := entities.ShipmentItem{
				ID:          itemID,
				OrderLineID: line,
				Quantity:    qty,
				LotID:       lotID,
				FacilityID:  facilityID,
			}
			if err := app.Allocation.UpsertItem(cmd.Context(), shipmentID, item); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "shipment %d now claims %s on line %s\n", shipmentID, quantity, line)
			return nil
		},
	}
	cmd.Flags().StringVar(&itemID, "item", "", "item id within the shipment")
	cmd.Flags().StringVar(&line, "line", "", "order line id")
	cmd.Flags().StringVar(&quantity, "quantity", "", "claimed quantity")
	cmd.Flags().StringVar(&lotID, "lot", "", "lot id")
	cmd.Flags().StringVar(&facilityID, "facility", "", "facility id")
	cmd.MarkFlagRequired("item")
	cmd.MarkFlagRequired("line")
	cmd.MarkFlagRequired("quantity")
	return cmd
}

func newShipmentRemoveCommand(app *App) *cobra.Command {
	var itemID string
	cmd := &cobra.Command{
		Use:   "remove <shipment-id>",
		Short: "Remove one allocation line, returning its quantity to the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shipmentID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.Allocation.DeleteItem(cmd.Context(), shipmentID, itemID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "item %s removed from shipment %d\n", itemID, shipmentID)
			return nil
		},
	}
	cmd.Flags().StringVar(&itemID, "item", "", "item id to remove")
	cmd.MarkFlagRequired("item")
	return cmd
}
