package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/continuity/internal/model"
	"github.com/rcliao/continuity/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search journal entries",
		Long:  "Find a user's journal entries containing the query text, optionally restricted to a tag.",
		Run:   runSearch,
	}

	cmd.Flags().StringP("tag", "t", "", "Only entries with this tag")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	tag, _ := cmd.Flags().GetString("tag")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")
	if query == "" && tag == "" {
		exitErr("search", fmt.Errorf("a query or --tag is required"))
	}
	user := getUser()

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.Search(cmd.Context(), store.SearchParams{
		UserID: user,
		Query:  query,
		Tag:    tag,
		Limit:  limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	if textFormat() {
		for _, m := range results {
			tags := ""
			if len(m.Tags) > 0 {
				tags = " " + dimColor.Sprint("#"+strings.Join(m.Tags, " #"))
			}
			fmt.Printf("%s %s%s\n", dimColor.Sprint(m.Timestamp.Local().Format(timeLayout)), m.Text, tags)
		}
		return
	}
	if results == nil {
		results = []model.MemoryEvent{}
	}
	printJSON(results)
}
