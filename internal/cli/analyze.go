package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "analyze",
		Aliases: []string{"run"},
		Short:   "Run continuity analysis for a user",
		Long: `Run every detector over the user's recent records, store the detected
continuity events and queue insight synthesis. Prints the run result.`,
		Run: runAnalyze,
	}

	RootCmd.AddCommand(cmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	user := getUser()
	ctx := cmd.Context()

	a := mustOpenApp(ctx)
	defer a.Close()

	res, err := a.orchestrator.Run(ctx, user)
	if err != nil {
		a.Close()
		exitErr("analyze", err)
	}

	if textFormat() {
		printRunResult(res)
		return
	}
	printJSON(res)
}
