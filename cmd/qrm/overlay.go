package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var overlayCmd = &cobra.Command{
	Use:     "overlay",
	Short:   "Inspect and toggle in-page overlays",
	GroupID: "surfaces",
}

var overlayListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tabs with a tracked overlay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := qrmClient.ListOverlays(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing overlays: %w", err)
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), recs)
		} else {
			printOverlays(cmd.OutOrStdout(), recs)
		}
		return nil
	},
}

var overlayToggleCmd = &cobra.Command{
	Use:   "toggle <tab-id>",
	Short: "Show or hide the overlay in a browser tab",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tabID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || tabID < 0 {
			return fmt.Errorf("invalid tab id %q", args[0])
		}
		visible, err := qrmClient.ToggleOverlay(cmd.Context(), tabID)
		if err != nil {
			return fmt.Errorf("toggling overlay: %w", err)
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), map[string]any{"tabId": tabID, "visible": visible})
			return nil
		}
		state := "hidden"
		if visible {
			state = "visible"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Overlay in tab %d is now %s\n", tabID, state)
		return nil
	},
}

var surfacesCmd = &cobra.Command{
	Use:     "surfaces",
	Short:   "List connected popups, overlays and browser bridges",
	GroupID: "surfaces",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := qrmClient.ListSurfaces(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing surfaces: %w", err)
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), entries)
		} else {
			printSurfaces(cmd.OutOrStdout(), entries)
		}
		return nil
	},
}

func init() {
	overlayCmd.AddCommand(overlayListCmd, overlayToggleCmd)
}
