package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create <type> <name>",
	Short: "Create a node",
	Args:  cobra.ExactArgs(2),
	RunE:  runCreate,
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a node as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a node's content and/or metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdate,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a node",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all nodes",
	RunE:  runList,
}

func init() {
	createCmd.Flags().String("content", "", "Node content")
	createCmd.Flags().String("metadata", "", "Metadata as a JSON object")
	createCmd.Flags().String("parent", "", "Parent node ID")

	updateCmd.Flags().String("content", "", "New content")
	updateCmd.Flags().String("metadata", "", "New metadata as a JSON object (replaces wholesale)")

	rootCmd.AddCommand(createCmd, getCmd, updateCmd, deleteCmd, listCmd)
}

func parseMetadata(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}
	return meta, nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	cx, err := openCodex(cmd)
	if err != nil {
		return err
	}

	content, _ := cmd.Flags().GetString("content")
	rawMeta, _ := cmd.Flags().GetString("metadata")
	parent, _ := cmd.Flags().GetString("parent")

	meta, err := parseMetadata(rawMeta)
	if err != nil {
		return err
	}

	id, duplicate, err := cx.Create(args[0], args[1], content, meta, parent, callerComponent(cmd))
	if err != nil {
		return err
	}
	if err := saveCodex(cmd, cx); err != nil {
		return err
	}

	if duplicate {
		fmt.Printf("Exists: %s\n", id)
	} else {
		fmt.Printf("Created: %s\n", id)
	}
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	cx, err := openCodex(cmd)
	if err != nil {
		return err
	}

	node, err := cx.Get(args[0], callerComponent(cmd))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(node)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	cx, err := openCodex(cmd)
	if err != nil {
		return err
	}

	var content *string
	if cmd.Flags().Changed("content") {
		c, _ := cmd.Flags().GetString("content")
		content = &c
	}

	rawMeta, _ := cmd.Flags().GetString("metadata")
	meta, err := parseMetadata(rawMeta)
	if err != nil {
		return err
	}

	if _, err := cx.Update(args[0], content, meta, callerComponent(cmd)); err != nil {
		return err
	}
	if err := saveCodex(cmd, cx); err != nil {
		return err
	}

	fmt.Printf("Updated: %s\n", args[0])
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	cx, err := openCodex(cmd)
	if err != nil {
		return err
	}

	if err := cx.Delete(args[0], callerComponent(cmd)); err != nil {
		return err
	}
	if err := saveCodex(cmd, cx); err != nil {
		return err
	}

	fmt.Printf("Deleted: %s\n", args[0])
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	cx, err := openCodex(cmd)
	if err != nil {
		return err
	}

	count := 0
	for node := range cx.ListAll() {
		fmt.Printf("%s  %-12s %s\n", node.ID, node.Type, node.Name)
		count++
	}
	fmt.Printf("%d nodes\n", count)
	return nil
}
