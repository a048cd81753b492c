package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/livingcodex/codex/internal/codex/config"
	"github.com/livingcodex/codex/internal/codex/logger"
	"github.com/livingcodex/codex/pkg/codex"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "codex",
	Short: "Codex - content-addressed fractal node store",
	Long: `Codex stores typed, content-addressed nodes linked into a fractal
graph. Commands operate on a local JSON snapshot file; run codexd for
the HTTP server.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"codex version %s\ncommit: %s\n", Version, Commit,
	))
	rootCmd.PersistentFlags().String("snapshot", "", "Snapshot file path")
	rootCmd.PersistentFlags().String("config", "", "Config file path")
	rootCmd.PersistentFlags().String("component", "cli", "Component name for access accounting")
}

func snapshotPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("snapshot"); path != "" {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "codex.json"
	}
	return filepath.Join(homeDir, ".local", "share", "codex", "codex.json")
}

// openCodex builds a store from the config and loads the snapshot file if
// it exists.
func openCodex(cmd *cobra.Command) (*codex.Codex, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{Level: "error"})
	cx := codex.New(codex.Options{
		IndexKeys:        cfg.Index.Keys,
		MaxAncestorDepth: cfg.Traversal.MaxAncestorDepth,
		Logger:           &log,
	})

	f, err := os.Open(snapshotPath(cmd))
	if os.IsNotExist(err) {
		return cx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	if err := cx.Import(f); err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return cx, nil
}

// saveCodex writes the store back to the snapshot file.
func saveCodex(cmd *cobra.Command, cx *codex.Codex) error {
	path := snapshotPath(cmd)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	defer f.Close()

	return cx.Export(f)
}

func callerComponent(cmd *cobra.Command) string {
	component, _ := cmd.Flags().GetString("component")
	return component
}
