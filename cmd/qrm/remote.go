package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var remoteCmd = &cobra.Command{
	Use:               "remote",
	Short:             "Manage named coordinator profiles",
	GroupID:           "system",
	PersistentPreRunE: noClient,
}

// maskToken keeps the first eight characters of a token.
func maskToken(tok string) string {
	if len(tok) <= 8 {
		return tok
	}
	return tok[:8] + strings.Repeat("*", len(tok)-8)
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or update a profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], args[1]
		token, _ := cmd.Flags().GetString("auth-token")
		grpcAddr, _ := cmd.Flags().GetString("grpc-addr")

		p, err := loadProfiles()
		if err != nil {
			return err
		}
		p.Profiles[name] = Profile{URL: url, GRPCAddr: grpcAddr, Token: token}
		if p.Active == "" {
			p.Active = name
		}
		if err := saveProfiles(p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q added (%s)\n", name, url)
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		p, err := loadProfiles()
		if err != nil {
			return err
		}
		if _, ok := p.Profiles[name]; !ok {
			return fmt.Errorf("remote %q not found", name)
		}
		delete(p.Profiles, name)
		if p.Active == name {
			p.Active = ""
		}
		if err := saveProfiles(p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q removed\n", name)
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfiles()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(p.Profiles) == 0 {
			fmt.Fprintln(out, "no remotes configured")
			return nil
		}
		names := make([]string, 0, len(p.Profiles))
		for name := range p.Profiles {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tURL\tGRPC\tTOKEN")
		for _, name := range names {
			r := p.Profiles[name]
			marker := "  "
			if name == p.Active {
				marker = "* "
			}
			tok := ""
			if r.Token != "" {
				tok = maskToken(r.Token)
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", marker, name, r.URL, r.GRPCAddr, tok)
		}
		return w.Flush()
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the active profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		p, err := loadProfiles()
		if err != nil {
			return err
		}
		if _, ok := p.Profiles[name]; !ok {
			return fmt.Errorf("remote %q not found", name)
		}
		p.Active = name
		if err := saveProfiles(p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active remote set to %q\n", name)
		return nil
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show [<name>]",
	Short: "Show a profile (defaults to the active one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfiles()
		if err != nil {
			return err
		}
		name := p.Active
		if len(args) == 1 {
			name = args[0]
		}
		if name == "" {
			return fmt.Errorf("no active remote; specify a name or run 'qrm remote use <name>'")
		}
		r, ok := p.Profiles[name]
		if !ok {
			return fmt.Errorf("remote %q not found", name)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		suffix := ""
		if name == p.Active {
			suffix = " (active)"
		}
		fmt.Fprintf(w, "name:\t%s%s\n", name, suffix)
		fmt.Fprintf(w, "url:\t%s\n", r.URL)
		if r.GRPCAddr != "" {
			fmt.Fprintf(w, "grpc_addr:\t%s\n", r.GRPCAddr)
		}
		if r.Token != "" {
			fmt.Fprintf(w, "token:\t%s\n", maskToken(r.Token))
		}
		return w.Flush()
	},
}

func init() {
	remoteAddCmd.Flags().String("auth-token", "", "bearer token for the coordinator API")
	remoteAddCmd.Flags().String("grpc-addr", "", "coordinator gRPC address for health checks")

	remoteCmd.AddCommand(remoteAddCmd, remoteRemoveCmd, remoteListCmd, remoteUseCmd, remoteShowCmd)
}
