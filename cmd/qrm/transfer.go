package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Write the catalog as an indented JSON document",
	GroupID: "catalog",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		blob, err := qrmClient.Export(cmd.Context())
		if err != nil {
			return fmt.Errorf("exporting: %w", err)
		}
		out, _ := cmd.Flags().GetString("output")
		if out == "" || out == "-" {
			_, err = cmd.OutOrStdout().Write(append(blob, '\n'))
			return err
		}
		if err := os.WriteFile(out, blob, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported catalog to %s\n", out)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:     "import [<file>]",
	Short:   "Replace the catalog with an exported document",
	Long:    "Replace the whole catalog with a previously exported JSON document, read from <file> or stdin. The document is validated before anything is written.",
	GroupID: "catalog",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			blob []byte
			err  error
		)
		if len(args) == 0 || args[0] == "-" {
			blob, err = io.ReadAll(cmd.InOrStdin())
		} else {
			blob, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("reading import: %w", err)
		}
		if err := confirm("Replace the entire catalog"); err != nil {
			return err
		}
		c, err := qrmClient.Import(cmd.Context(), blob)
		if err != nil {
			return fmt.Errorf("importing: %w", err)
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), c)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d categories, %d templates\n", len(c.Categories), c.TemplateCount())
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")
	importCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
}
