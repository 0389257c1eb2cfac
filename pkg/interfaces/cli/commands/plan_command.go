package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newPlanCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Inspect and transition schedule plans",
	}
	cmd.AddCommand(
		newPlanListCommand(app),
		newPlanShowCommand(app),
		newPlanCompareCommand(app),
		newPlanApplyCommand(app),
		newPlanDiscardCommand(app),
		newPlanRevertCommand(app),
	)
	return cmd
}

func newPlanListCommand(app *App) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tenant's plans, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := app.Lifecycle.History(cmd.Context(), app.TenantID, page, app.Config.History.PageSize)
			if err != nil {
				return err
			}
			return app.Renderer.Plans(history)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "history page to show")
	return cmd
}

func newPlanShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show one plan with its scheduling stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planID, err := parseID(args[0])
			if err != nil {
				return err
			}
			stats, err := app.Lifecycle.Stats(cmd.Context(), planID)
			if err != nil {
				return err
			}
			plan, err := app.Plans.GetPlanByID(cmd.Context(), planID)
			if err != nil {
				return err
			}
			return app.Renderer.Plan(plan, stats)
		},
	}
}

func newPlanCompareCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "compare",
		Short: "Diff the proposed plan against the active one",
		RunE: func(cmd *cobra.Command, args []string) error {
			comparison, err := app.Lifecycle.Compare(cmd.Context(), app.TenantID)
			if err != nil {
				return err
			}
			return app.Renderer.Comparison(comparison)
		},
	}
}

func newPlanApplyCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <plan-id>",
		Short: "Promote the proposed plan to active, archiving the current one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planID, err := parseID(args[0])
			if err != nil {
				return err
			}
			applied, err := app.Lifecycle.Apply(cmd.Context(), app.TenantID, planID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "plan %d is now %s\n", applied.ID, applied.Status)
			return nil
		},
	}
}

func newPlanDiscardCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "discard <plan-id>",
		Short: "Throw away a proposed plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.Lifecycle.Discard(cmd.Context(), app.TenantID, planID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "plan %d discarded\n", planID)
			return nil
		},
	}
}

func newPlanRevertCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "revert <plan-id>",
		Short: "Promote an archived or completed plan back to active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planID, err := parseID(args[0])
			if err != nil {
				return err
			}
			reverted, err := app.Lifecycle.Revert(cmd.Context(), app.TenantID, planID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "plan %d is now %s\n", reverted.ID, reverted.Status)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
