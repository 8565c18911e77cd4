package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memtide/memtide/internal/model"
	"github.com/memtide/memtide/internal/search"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories",
		Long: "Search memories under a ranking strategy. similarity is pure vector\n" +
			"recall; composite blends similarity, recency, importance and tag links;\n" +
			"recency and importance re-sort the owner's records.",
		Args: cobra.MinimumNArgs(1),
		Run:  runSearch,
	}

	cmd.Flags().StringP("strategy", "s", "composite", "Strategy: similarity, composite, recency or importance")
	cmd.Flags().Float64("threshold", -1, "Score threshold (default depends on strategy)")
	cmd.Flags().IntP("limit", "l", 10, "Max results")
	cmd.Flags().String("category", "", "Filter by category")
	cmd.Flags().StringSlice("active-tag", nil, "Contextually active tag for the link boost (repeatable)")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	owner, err := getOwner()
	if err != nil {
		exitErr("search", err)
	}

	strategyStr, _ := cmd.Flags().GetString("strategy")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	limit, _ := cmd.Flags().GetInt("limit")
	category, _ := cmd.Flags().GetString("category")
	activeTags, _ := cmd.Flags().GetStringSlice("active-tag")

	strategy, err := model.ParseStrategy(strategyStr)
	if err != nil {
		exitErr("search", err)
	}

	svc, st, _, _, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	res, err := svc.SearchMemories(cmd.Context(), search.Params{
		OwnerID:    owner,
		Query:      strings.Join(args, " "),
		Strategy:   strategy,
		Threshold:  threshold,
		Limit:      limit,
		Category:   category,
		ActiveTags: activeTags,
	})
	if err != nil {
		exitErr("search", err)
	}

	b, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(b))
}
