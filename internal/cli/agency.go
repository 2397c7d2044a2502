package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/continuity/internal/will"
)

func init() {
	cmd := &cobra.Command{
		Use:   "agency",
		Short: "Show agency metrics from will events",
		Run:   runAgency,
	}

	cmd.Flags().Int("window", 0, "Window in days (default: analysis.agency_window_days)")

	RootCmd.AddCommand(cmd)
}

func runAgency(cmd *cobra.Command, args []string) {
	window, _ := cmd.Flags().GetInt("window")
	if window <= 0 {
		window = cfg.Analysis.AgencyWindowDays
	}
	user := getUser()

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	m, err := will.NewService(s).AgencyMetrics(cmd.Context(), user, window)
	if err != nil {
		exitErr("agency", err)
	}

	if textFormat() {
		printAgency(&m, window)
		return
	}
	printJSON(m)
}
