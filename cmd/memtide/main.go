package main

import (
	"os"

	"github.com/memtide/memtide/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
