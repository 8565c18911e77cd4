package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memtide/memtide/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories",
		Run:   runList,
	}

	cmd.Flags().String("category", "", "Filter by category")
	cmd.Flags().StringSlice("tag", nil, "Filter by tag (repeatable)")
	cmd.Flags().Bool("embedded", false, "Only records with a computed embedding")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	owner, err := getOwner()
	if err != nil {
		exitErr("list", err)
	}

	category, _ := cmd.Flags().GetString("category")
	tags, _ := cmd.Flags().GetStringSlice("tag")
	embedded, _ := cmd.Flags().GetBool("embedded")
	limit, _ := cmd.Flags().GetInt("limit")

	svc, st, _, _, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	records, err := svc.ListMemories(cmd.Context(), owner, store.Filters{
		Category:     category,
		Tags:         tags,
		OnlyEmbedded: embedded,
		Limit:        limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	if len(records) == 0 {
		fmt.Println("[]")
		return
	}
	b, _ := json.MarshalIndent(records, "", "  ")
	fmt.Println(string(b))
}
