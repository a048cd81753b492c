package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write a snapshot to a file ('-' for stdout)",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the store from a snapshot file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check node integrity hashes",
	RunE:  runVerify,
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show store statistics as JSON",
	RunE:  runMetrics,
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd, verifyCmd, metricsCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cx, err := openCodex(cmd)
	if err != nil {
		return err
	}

	if args[0] == "-" {
		return cx.Export(os.Stdout)
	}

	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := cx.Export(f); err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", args[0])
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cx, err := openCodex(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	if err := cx.Import(f); err != nil {
		return err
	}
	if err := saveCodex(cmd, cx); err != nil {
		return err
	}

	fmt.Printf("Imported %d nodes\n", cx.MetricsSnapshot().TotalNodes)
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	cx, err := openCodex(cmd)
	if err != nil {
		return err
	}

	mismatched := cx.Verify()
	if len(mismatched) == 0 {
		fmt.Println("OK")
		return nil
	}
	for _, id := range mismatched {
		fmt.Printf("MISMATCH %s\n", id)
	}
	return fmt.Errorf("%d nodes failed verification", len(mismatched))
}

func runMetrics(cmd *cobra.Command, args []string) error {
	cx, err := openCodex(cmd)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cx.MetricsSnapshot())
}
