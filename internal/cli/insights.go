package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/continuity/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "List synthesized insights",
		Run:   runInsights,
	}

	cmd.Flags().String("type", "", "Filter by insight type (pattern, trend, identity_shift, emotional)")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runInsights(cmd *cobra.Command, args []string) {
	insightType, _ := cmd.Flags().GetString("type")
	limit, _ := cmd.Flags().GetInt("limit")
	user := getUser()
	ctx := cmd.Context()

	a := mustOpenApp(ctx)
	defer a.Close()

	insights, err := a.insights.List(ctx, user, insightType, limit)
	if err != nil {
		a.Close()
		exitErr("insights", err)
	}

	if textFormat() {
		printInsights(insights)
		return
	}
	if insights == nil {
		insights = []model.Insight{}
	}
	printJSON(insights)
}
