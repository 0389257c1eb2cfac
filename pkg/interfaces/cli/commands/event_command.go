package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEventCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Mutate schedule events: split, complete, skip, pin",
	}
	cmd.AddCommand(
		newEventListCommand(app),
		newEventSplitCommand(app),
		newEventCompleteCommand(app),
		newEventSkipCommand(app),
		newEventPinCommand(app),
		newEventUnpinCommand(app),
	)
	return cmd
}

func newEventListCommand(app *App) *cobra.Command {
	var fromDateMs, toDateMs int64
	cmd := &cobra.Command{
		Use:   "list <plan-id>",
		Short: "List a plan's events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planID, err := parseID(args[0])
			if err != nil {
				return err
			}
			events, err := app.Schedule.ListEvents(cmd.Context(), planID, fromDateMs, toDateMs)
			if err != nil {
				return err
			}
			return app.Renderer.Events(events)
		},
	}
	cmd.Flags().Int64Var(&fromDateMs, "from", 0, "window start as epoch milliseconds (0 = unbounded)")
	cmd.Flags().Int64Var(&toDateMs, "to", 0, "window end as epoch milliseconds (0 = unbounded)")
	return cmd
}

func newEventSplitCommand(app *App) *cobra.Command {
	var offsetMin int
	var preview bool
	cmd := &cobra.Command{
		Use:   "split <event-id>",
		Short: "Split an event into two linked parts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if preview {
				p, err := app.Schedule.PreviewSplit(cmd.Context(), eventID, offsetMin)
				if err != nil {
					return err
				}
				return app.Renderer.SplitPreview(p)
			}
			partA, partB, err := app.Schedule.Split(cmd.Context(), eventID, offsetMin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "event %d split into %d (%d min) and %d (%d min)\n",
				partA.ID, partA.ID, partA.DurationMinutes(), partB.ID, partB.DurationMinutes())
			return nil
		},
	}
	cmd.Flags().IntVar(&offsetMin, "offset", 0, "minutes past the event start to cut at")
	cmd.Flags().BoolVar(&preview, "preview", false, "show the resulting parts without persisting")
	cmd.MarkFlagRequired("offset")
	return cmd
}

func newEventCompleteCommand(app *App) *cobra.Command {
	var actualStart, actualEnd int
	cmd := &cobra.Command{
		Use:   "complete <event-id>",
		Short: "Mark an event done with the actually worked time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseID(args[0])
			if err != nil {
				return err
			}
			done, err := app.Schedule.Complete(cmd.Context(), eventID, actualStart, actualEnd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "event %d completed\n", done.ID)
			return nil
		},
	}
	cmd.Flags().IntVar(&actualStart, "start", 0, "actual start, minutes from midnight")
	cmd.Flags().IntVar(&actualEnd, "end", 0, "actual end, minutes from midnight")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func newEventSkipCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "skip <event-id>",
		Short: "Skip an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := app.Schedule.Skip(cmd.Context(), eventID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "event %d skipped\n", eventID)
			return nil
		},
	}
}

func newEventPinCommand(app *App) *cobra.Command {
	var dateMs int64
	var startMin, endMin int
	cmd := &cobra.Command{
		Use:   "pin <event-id>",
		Short: "Move an event and exempt it from rescheduling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseID(args[0])
			if err != nil {
				return err
			}
			pinned, err := app.Schedule.Pin(cmd.Context(), eventID, dateMs, startMin, endMin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "event %d pinned at %d %d-%d\n",
				pinned.ID, pinned.DateMs, pinned.StartMin, pinned.EndMin)
			return nil
		},
	}
	cmd.Flags().Int64Var(&dateMs, "date", 0, "target day as epoch milliseconds")
	cmd.Flags().IntVar(&startMin, "start", 0, "target start, minutes from midnight")
	cmd.Flags().IntVar(&endMin, "end", 0, "target end, minutes from midnight")
	cmd.MarkFlagRequired("date")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func newEventUnpinCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unpin <event-id>",
		Short: "Return an event to the optimizer's control",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := app.Schedule.Unpin(cmd.Context(), eventID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "event %d unpinned\n", eventID)
			return nil
		},
	}
}
