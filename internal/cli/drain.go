package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/memtide/memtide/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Process buffered embedding work",
		Long: "Run the embedding drain. By default performs a single pass over due\n" +
			"items; with --watch it keeps polling until interrupted, persisting the\n" +
			"buffer on shutdown.",
		Run: runDrain,
	}
	cmd.Flags().BoolP("watch", "w", false, "Keep draining until interrupted")
	RootCmd.AddCommand(cmd)
}

func runDrain(cmd *cobra.Command, args []string) {
	svc, st, buf, cfg, err := openService()
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	watch, _ := cmd.Flags().GetBool("watch")

	if !watch {
		n := svc.DrainOnce(cmd.Context())
		if err := buf.Persist(); err != nil {
			exitErr("persist buffer", err)
		}
		fmt.Printf("drained %d items\n", n)
		return
	}

	interval, err := cfg.DrainInterval()
	if err != nil {
		exitErr("drain", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := memory.NewDrainer(svc, interval)
	d.Start(ctx)
	<-ctx.Done()
	d.Stop()
}
