package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var categoryCmd = &cobra.Command{
	Use:     "category",
	Aliases: []string{"cat"},
	Short:   "Manage categories",
	GroupID: "catalog",
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the catalog grouped by category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := qrmClient.GetCatalog(cmd.Context())
		if err != nil {
			return fmt.Errorf("getting catalog: %w", err)
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), c)
		} else {
			printCatalogTable(cmd.OutOrStdout(), c)
		}
		return nil
	},
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := qrmClient.AddCategory(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("adding category: %w", err)
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), cat)
		} else {
			printCategory(cmd.OutOrStdout(), cat)
		}
		return nil
	},
}

var categoryRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := qrmClient.RenameCategory(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("renaming category %s: %w", args[0], err)
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), cat)
		} else {
			printCategory(cmd.OutOrStdout(), cat)
		}
		return nil
	},
}

var categoryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a category and every template in it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := confirm(fmt.Sprintf("Delete category %s and its templates", args[0])); err != nil {
			return err
		}
		deleted, err := qrmClient.DeleteCategory(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("deleting category %s: %w", args[0], err)
		}
		if !deleted {
			return fmt.Errorf("category %s not found", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %s\n", args[0])
		return nil
	},
}

func init() {
	categoryDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")

	categoryCmd.AddCommand(categoryListCmd, categoryAddCmd, categoryRenameCmd, categoryDeleteCmd)
}
