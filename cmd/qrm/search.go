package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:     "search <query>",
	Short:   "Find templates by title or text",
	GroupID: "catalog",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		matches, err := qrmClient.Search(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), matches)
		} else {
			printMatches(cmd.OutOrStdout(), matches)
		}
		return nil
	},
}
