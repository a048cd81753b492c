package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:   "link <source> <target> <label>",
	Short: "Link two nodes",
	Args:  cobra.ExactArgs(3),
	RunE:  runLink,
}

var childCmd = &cobra.Command{
	Use:   "child <parent> <child>",
	Short: "Attach a node as a child of another",
	Args:  cobra.ExactArgs(2),
	RunE:  runChild,
}

var networkCmd = &cobra.Command{
	Use:   "network <id>",
	Short: "Show a node's neighborhood as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runNetwork,
}

func init() {
	linkCmd.Flags().Bool("one-directional", false, "Hide the reverse half of the link")

	networkCmd.Flags().Int("depth", 2, "Traversal depth")
	networkCmd.Flags().Int("fanout", 10, "Max children and links shown per node")

	rootCmd.AddCommand(linkCmd, childCmd, networkCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
	cx, err := openCodex(cmd)
	if err != nil {
		return err
	}

	oneDirectional, _ := cmd.Flags().GetBool("one-directional")
	linkID, err := cx.AddLink(args[0], args[1], args[2], oneDirectional)
	if err != nil {
		return err
	}
	if err := saveCodex(cmd, cx); err != nil {
		return err
	}

	fmt.Printf("Linked: %s\n", linkID)
	return nil
}

func runChild(cmd *cobra.Command, args []string) error {
	cx, err := openCodex(cmd)
	if err != nil {
		return err
	}

	if err := cx.AddChild(args[0], args[1]); err != nil {
		return err
	}
	if err := saveCodex(cmd, cx); err != nil {
		return err
	}

	fmt.Printf("Attached %s under %s\n", args[1], args[0])
	return nil
}

func runNetwork(cmd *cobra.Command, args []string) error {
	cx, err := openCodex(cmd)
	if err != nil {
		return err
	}

	depth, _ := cmd.Flags().GetInt("depth")
	fanout, _ := cmd.Flags().GetInt("fanout")

	network, err := cx.GetNetwork(args[0], depth, fanout)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(network)
}
