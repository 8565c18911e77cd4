package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/memtide/memtide/internal/buffer"
	"github.com/memtide/memtide/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database and buffer statistics",
		Run:   runStats,
	}
	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	_, st, buf, _, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	// Unscoped when no owner is set.
	owner := ownerFlag
	if owner == "" {
		owner = os.Getenv("MEMTIDE_OWNER")
	}

	dbStats, err := st.Stats(cmd.Context(), getDBPath(), owner)
	if err != nil {
		exitErr("stats", err)
	}

	out := struct {
		Store  *store.Stats   `json:"store"`
		Buffer buffer.Metrics `json:"buffer"`
	}{Store: dbStats, Buffer: buf.Metrics()}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
