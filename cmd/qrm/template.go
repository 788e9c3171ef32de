package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/quickreply/internal/model"
	"github.com/alfredjeanlab/quickreply/internal/ui"
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"tpl"},
	Short:   "Manage templates",
	GroupID: "catalog",
}

// readText returns the --text flag, the contents of --file ("-" for stdin),
// or nil when neither was given.
func readText(cmd *cobra.Command) (*string, error) {
	if cmd.Flags().Changed("text") {
		s, _ := cmd.Flags().GetString("text")
		return &s, nil
	}
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		return nil, nil
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading template text: %w", err)
	}
	s := string(data)
	return &s, nil
}

// pickCategory lets the user choose a category when --category was omitted.
func pickCategory(cmd *cobra.Command) (string, error) {
	if !ui.IsInteractive() {
		return "", errors.New("--category is required")
	}
	c, err := qrmClient.GetCatalog(cmd.Context())
	if err != nil {
		return "", fmt.Errorf("getting catalog: %w", err)
	}
	if len(c.Categories) == 0 {
		return "", errors.New("no categories yet; run 'qrm category add <name>' first")
	}
	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	sel := promptui.Select{Label: "Category", Items: names}
	idx, _, err := sel.Run()
	if err != nil {
		return "", err
	}
	return c.Categories[idx].ID, nil
}

var templateAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a template to a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		categoryID, _ := cmd.Flags().GetString("category")
		if categoryID == "" {
			id, err := pickCategory(cmd)
			if err != nil {
				return err
			}
			categoryID = id
		}
		in := model.TemplateInput{Title: args[0]}
		text, err := readText(cmd)
		if err != nil {
			return err
		}
		if text != nil {
			in.Text = *text
		}

		tpl, err := qrmClient.AddTemplate(cmd.Context(), categoryID, in)
		if err != nil {
			return fmt.Errorf("adding template: %w", err)
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), tpl)
		} else {
			printTemplate(cmd.OutOrStdout(), tpl)
		}
		return nil
	},
}

var templateUpdateCmd = &cobra.Command{
	Use:   "update <category-id> <template-id>",
	Short: "Change a template's title or text",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch model.TemplatePatch
		if cmd.Flags().Changed("title") {
			title, _ := cmd.Flags().GetString("title")
			patch.Title = &title
		}
		text, err := readText(cmd)
		if err != nil {
			return err
		}
		patch.Text = text
		if patch.Title == nil && patch.Text == nil {
			return errors.New("nothing to update: pass --title, --text or --file")
		}

		tpl, err := qrmClient.UpdateTemplate(cmd.Context(), args[0], args[1], patch)
		if err != nil {
			return fmt.Errorf("updating template %s: %w", args[1], err)
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), tpl)
		} else {
			printTemplate(cmd.OutOrStdout(), tpl)
		}
		return nil
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <category-id> <template-id>",
	Short: "Delete a template",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := confirm(fmt.Sprintf("Delete template %s", args[1])); err != nil {
			return err
		}
		deleted, err := qrmClient.DeleteTemplate(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("deleting template %s: %w", args[1], err)
		}
		if !deleted {
			return fmt.Errorf("template %s not found in category %s", args[1], args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted template %s\n", args[1])
		return nil
	},
}

var templateMoveCmd = &cobra.Command{
	Use:   "move <template-id> <category-id>",
	Short: "Move a template to the end of another category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tpl, err := qrmClient.MoveTemplate(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("moving template %s: %w", args[0], err)
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), tpl)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Moved %s (%s) to %s\n", tpl.ID, tpl.Title, args[1])
		return nil
	},
}

func init() {
	templateAddCmd.Flags().StringP("category", "c", "", "category id (prompts when omitted)")
	for _, c := range []*cobra.Command{templateAddCmd, templateUpdateCmd} {
		c.Flags().String("text", "", "template text")
		c.Flags().StringP("file", "f", "", "read template text from a file (- for stdin)")
	}
	templateUpdateCmd.Flags().String("title", "", "new title")
	templateDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")

	templateCmd.AddCommand(templateAddCmd, templateUpdateCmd, templateDeleteCmd, templateMoveCmd)
}
