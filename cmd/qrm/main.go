package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/quickreply/internal/client"
)

var (
	httpURL    string
	authToken  string
	configPath string
	jsonOutput bool
	assumeYes  bool

	qrmClient client.Client
)

func defaultHTTPURL() string {
	if s := os.Getenv("QRM_HTTP_URL"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "http://localhost:7391"
}

func defaultToken() string {
	if s := os.Getenv("QRM_TOKEN"); s != "" {
		return s
	}
	return activeRemoteToken()
}

var rootCmd = &cobra.Command{
	Use:           "qrm <command>",
	Short:         "Quick reply manager: snippet catalog, overlays and sync",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		qrmClient = client.NewHTTPClient(httpURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if qrmClient != nil {
			qrmClient.Close()
		}
	},
}

// noClient skips the HTTP client for commands that work locally.
func noClient(cmd *cobra.Command, args []string) error { return nil }

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "coordinator HTTP URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", defaultToken(), "bearer token for the coordinator API")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to the coordinator YAML config")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "catalog", Title: "Catalog:"},
		&cobra.Group{ID: "surfaces", Title: "Surfaces:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Catalog
	rootCmd.AddCommand(categoryCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	// Surfaces
	rootCmd.AddCommand(overlayCmd)
	rootCmd.AddCommand(surfacesCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
