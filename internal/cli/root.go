// Package cli implements the memtide CLI commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/memtide/memtide/internal/buffer"
	"github.com/memtide/memtide/internal/config"
	"github.com/memtide/memtide/internal/embedding"
	"github.com/memtide/memtide/internal/memory"
	"github.com/memtide/memtide/internal/store"
)

var (
	dbPath     string
	configPath string
	ownerFlag  string
	verbose    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "memtide",
	Short: "Ranked memory retrieval for AI assistants",
	Long: "Memtide stores free-text memories with optional vector embeddings and\n" +
		"retrieves them by a blend of semantic similarity, recency and importance.\n" +
		"Embedding computation can be deferred through a durable retry buffer.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $MEMTIDE_DB or ~/.memtide/memory.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.memtide/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&ownerFlag, "owner", "o", "", "Owner ID scoping every read and write (or $MEMTIDE_OWNER)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("MEMTIDE_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".memtide", "memory.db")
}

func getOwner() (string, error) {
	if ownerFlag != "" {
		return ownerFlag, nil
	}
	if env := os.Getenv("MEMTIDE_OWNER"); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("owner required (use --owner or $MEMTIDE_OWNER)")
}

func snapshotPath(cfg *config.Config) string {
	if cfg.Buffer.SnapshotPath != "" {
		return cfg.Buffer.SnapshotPath
	}
	return filepath.Join(filepath.Dir(getDBPath()), "buffer.json")
}

// openService wires the full stack: config, store, embedder, buffer (with
// its snapshot restored) and the orchestrator.
func openService() (*memory.Service, *store.SQLiteStore, *buffer.Buffer, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	path := getDBPath()
	if cfg.DBPath != "" && dbPath == "" && os.Getenv("MEMTIDE_DB") == "" {
		path = cfg.DBPath
	}

	st, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	buf := buffer.New(buffer.Options{
		MaxSize:     cfg.Buffer.MaxSize,
		MaxAttempts: cfg.Buffer.MaxAttempts,
		Snapshot:    buffer.NewFileSnapshot(snapshotPath(cfg)),
	})
	if n, err := buf.Restore(); err != nil {
		st.Close()
		return nil, nil, nil, nil, fmt.Errorf("restore buffer: %w", err)
	} else if n > 0 {
		slog.Debug("buffer restored", "items", n)
	}

	emb := embedding.New(embedding.Settings{
		Provider: cfg.Embeddings.Provider,
		Model:    cfg.Embeddings.Model,
		BaseURL:  cfg.Embeddings.BaseURL,
		Dims:     cfg.Embeddings.Dimension,
	})

	baseRetry, err := cfg.BaseRetry()
	if err != nil {
		st.Close()
		return nil, nil, nil, nil, err
	}

	svc := memory.New(st, emb, buf, cfg.ScoringOptions(),
		memory.WithBaseRetryDelay(baseRetry))
	return svc, st, buf, cfg, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
