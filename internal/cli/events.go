package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/continuity/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List stored continuity events",
		Run:   runEvents,
	}

	cmd.Flags().String("type", "", "Filter by event type (contradiction, abandoned_goal, arc_shift, identity_drift, emotional_transition, thematic_drift, agency_drift)")
	cmd.Flags().IntP("limit", "l", 50, "Max results")

	RootCmd.AddCommand(cmd)
}

func runEvents(cmd *cobra.Command, args []string) {
	eventType, _ := cmd.Flags().GetString("type")
	limit, _ := cmd.Flags().GetInt("limit")
	user := getUser()
	ctx := cmd.Context()

	a := mustOpenApp(ctx)
	defer a.Close()

	events, err := a.orchestrator.ListEvents(ctx, user, model.EventType(eventType), limit)
	if err != nil {
		a.Close()
		exitErr("events", err)
	}

	if textFormat() {
		printEvents(events)
		return
	}
	if events == nil {
		events = []model.ContinuityEvent{}
	}
	printJSON(events)
}
