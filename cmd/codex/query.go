package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search nodes by substring",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the index",
}

var queryTypeCmd = &cobra.Command{
	Use:   "type <type>",
	Short: "List nodes of a type",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryType,
}

var queryTagCmd = &cobra.Command{
	Use:   "tag <key> <value>",
	Short: "List nodes with an indexed metadata value",
	Args:  cobra.ExactArgs(2),
	RunE:  runQueryTag,
}

func init() {
	searchCmd.Flags().String("field", "name", "Field to search: name, content, or tag")

	queryCmd.AddCommand(queryTypeCmd, queryTagCmd)
	rootCmd.AddCommand(searchCmd, queryCmd)
}

func printIDs(ids []string) {
	for _, id := range ids {
		fmt.Println(id)
	}
	fmt.Printf("%d nodes\n", len(ids))
}

func runSearch(cmd *cobra.Command, args []string) error {
	cx, err := openCodex(cmd)
	if err != nil {
		return err
	}

	field, _ := cmd.Flags().GetString("field")
	ids, err := cx.Search(args[0], field, callerComponent(cmd))
	if err != nil {
		return err
	}
	printIDs(ids)
	return nil
}

func runQueryType(cmd *cobra.Command, args []string) error {
	cx, err := openCodex(cmd)
	if err != nil {
		return err
	}
	printIDs(cx.QueryByType(args[0], callerComponent(cmd)))
	return nil
}

func runQueryTag(cmd *cobra.Command, args []string) error {
	cx, err := openCodex(cmd)
	if err != nil {
		return err
	}
	printIDs(cx.QueryByTag(args[0], args[1], callerComponent(cmd)))
	return nil
}
