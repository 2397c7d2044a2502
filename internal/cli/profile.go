package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/continuity/internal/model"
)

func init() {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Compute and read continuity profiles",
	}

	compute := &cobra.Command{
		Use:   "compute",
		Short: "Compute a new profile version",
		Long:  "Aggregate persistent values, recurring themes, identity stability and agency over the window and store the result as a new version.",
		Run:   runProfileCompute,
	}
	compute.Flags().Int("window", 0, "Window in days (default: profile.window_days)")

	get := &cobra.Command{
		Use:   "get",
		Short: "Show the latest stored profile",
		Run:   runProfileGet,
	}

	history := &cobra.Command{
		Use:   "history",
		Short: "List stored profile versions, newest first",
		Run:   runProfileHistory,
	}
	history.Flags().IntP("limit", "l", 10, "Max versions")

	profileCmd.AddCommand(compute, get, history)
	RootCmd.AddCommand(profileCmd)
}

func runProfileCompute(cmd *cobra.Command, args []string) {
	window, _ := cmd.Flags().GetInt("window")
	user := getUser()
	ctx := cmd.Context()

	a := mustOpenApp(ctx)
	defer a.Close()

	p, err := a.profiles.Compute(ctx, user, window)
	if err != nil {
		a.Close()
		exitErr("compute profile", err)
	}
	writeProfile(p)
}

func runProfileGet(cmd *cobra.Command, args []string) {
	user := getUser()
	ctx := cmd.Context()

	a := mustOpenApp(ctx)
	defer a.Close()

	p, err := a.profiles.Latest(ctx, user)
	if err != nil {
		a.Close()
		exitErr("get profile", err)
	}
	if p == nil {
		if textFormat() {
			fmt.Println(dimColor.Sprint("no profile computed yet"))
			return
		}
		fmt.Println("null")
		return
	}
	writeProfile(p)
}

func runProfileHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	user := getUser()
	ctx := cmd.Context()

	a := mustOpenApp(ctx)
	defer a.Close()

	profiles, err := a.profiles.History(ctx, user, limit)
	if err != nil {
		a.Close()
		exitErr("profile history", err)
	}

	if textFormat() {
		for i := range profiles {
			printProfile(&profiles[i])
			fmt.Println()
		}
		return
	}
	if profiles == nil {
		profiles = []model.ContinuityProfile{}
	}
	printJSON(profiles)
}

func writeProfile(p *model.ContinuityProfile) {
	if textFormat() {
		printProfile(p)
		return
	}
	printJSON(p)
}
