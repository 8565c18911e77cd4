package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memtide/memtide/internal/memory"
	"github.com/memtide/memtide/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Store a new memory",
		Long: "Store a memory record. With --mode async the record is persisted\n" +
			"immediately and its embedding is computed by the drain loop later.",
		Args: cobra.MinimumNArgs(1),
		Run:  runAdd,
	}

	cmd.Flags().StringP("title", "t", "", "Title")
	cmd.Flags().String("category", "", "Category: system, learned or personal")
	cmd.Flags().Float64P("importance", "i", model.DefaultImportance, "Importance in [0,1]")
	cmd.Flags().StringSlice("tag", nil, "Tag (repeatable)")
	cmd.Flags().StringP("mode", "m", "disabled", "Embedding mode: sync, async or disabled")

	RootCmd.AddCommand(cmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	owner, err := getOwner()
	if err != nil {
		exitErr("add", err)
	}

	title, _ := cmd.Flags().GetString("title")
	category, _ := cmd.Flags().GetString("category")
	importance, _ := cmd.Flags().GetFloat64("importance")
	tags, _ := cmd.Flags().GetStringSlice("tag")
	modeStr, _ := cmd.Flags().GetString("mode")

	mode, err := model.ParseEmbeddingMode(modeStr)
	if err != nil {
		exitErr("add", err)
	}

	svc, st, buf, _, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	res, err := svc.AddMemory(cmd.Context(), memory.AddParams{
		OwnerID:    owner,
		Title:      title,
		Content:    strings.Join(args, " "),
		Category:   category,
		Importance: &importance,
		Tags:       tags,
	}, mode)
	if err != nil {
		exitErr("add memory", err)
	}

	// Async enqueued work must survive the process.
	if res.EmbeddingQueued {
		if err := buf.Persist(); err != nil {
			exitErr("persist buffer", err)
		}
	}

	b, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(b))
}
