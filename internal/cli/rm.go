package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm [id]",
		Short: "Archive a memory",
		Long:  "Soft-delete a memory. Archived records are excluded from search and list.",
		Args:  cobra.ExactArgs(1),
		Run:   runRm,
	}
	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	owner, err := getOwner()
	if err != nil {
		exitErr("rm", err)
	}

	svc, st, _, _, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	if err := svc.ArchiveMemory(cmd.Context(), owner, args[0]); err != nil {
		exitErr("rm", err)
	}
	fmt.Printf("archived %s\n", args[0])
}
