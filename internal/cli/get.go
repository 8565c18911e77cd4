package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Get a memory by ID",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}
	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	owner, err := getOwner()
	if err != nil {
		exitErr("get", err)
	}

	svc, st, _, _, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	rec, err := svc.GetMemory(cmd.Context(), owner, args[0])
	if err != nil {
		exitErr("get", err)
	}

	b, _ := json.MarshalIndent(rec, "", "  ")
	fmt.Println(string(b))
}
