package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memtide/memtide/internal/buffer"
)

func init() {
	bufCmd := &cobra.Command{
		Use:   "buffer",
		Short: "Inspect the embedding buffer",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show buffer metrics and items",
		Run:   runBufferStatus,
	}
	statusCmd.Flags().Bool("items", false, "Include individual items")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove completed and failed items",
		Run:   runBufferClear,
	}
	clearCmd.Flags().Bool("failed-only", false, "Only remove failed items")

	bufCmd.AddCommand(statusCmd, clearCmd)
	RootCmd.AddCommand(bufCmd)
}

func runBufferStatus(cmd *cobra.Command, args []string) {
	_, st, buf, _, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	withItems, _ := cmd.Flags().GetBool("items")

	out := struct {
		Metrics buffer.Metrics `json:"metrics"`
		Items   []buffer.Item  `json:"items,omitempty"`
	}{Metrics: buf.Metrics()}
	if withItems {
		out.Items = buf.Items()
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}

func runBufferClear(cmd *cobra.Command, args []string) {
	_, st, buf, _, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	failedOnly, _ := cmd.Flags().GetBool("failed-only")

	var n int
	if failedOnly {
		n = buf.Clear(buffer.StatusFailed)
	} else {
		n = buf.Clear()
	}
	if err := buf.Persist(); err != nil {
		exitErr("persist buffer", err)
	}
	fmt.Printf("cleared %d items\n", n)
}
