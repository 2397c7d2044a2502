package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's records as JSON",
		Long:  "Export every record of one user as a JSON bundle that import accepts.",
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	user := getUser()

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	bundle, err := s.ExportUser(cmd.Context(), user)
	if err != nil {
		exitErr("export", err)
	}
	printJSON(bundle)
}
