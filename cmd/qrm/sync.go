package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Remote mirror synchronization",
	GroupID: "system",
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session, network and pending-push state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := qrmClient.SyncStatus(cmd.Context())
		if err != nil {
			return fmt.Errorf("getting sync status: %w", err)
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), st)
		} else {
			printSyncState(cmd.OutOrStdout(), st)
		}
		return nil
	},
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch the remote catalog now (remote wins)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := qrmClient.SyncPull(cmd.Context())
		if err != nil {
			return fmt.Errorf("pulling: %w", err)
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), resp)
			return nil
		}
		if resp.Pulled {
			fmt.Fprintln(cmd.OutOrStdout(), "Pulled remote catalog.")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing pulled (signed out, offline, no remote, or unsent local changes).")
		}
		printSyncState(cmd.OutOrStdout(), &resp.State)
		return nil
	},
}

var syncOnlineCmd = &cobra.Command{
	Use:   "online <true|false>",
	Short: "Tell the coordinator whether the network is reachable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		online, err := strconv.ParseBool(args[0])
		if err != nil {
			return fmt.Errorf("invalid value %q: want true or false", args[0])
		}
		st, err := qrmClient.SetOnline(cmd.Context(), online)
		if err != nil {
			return fmt.Errorf("setting online state: %w", err)
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), st)
		} else {
			printSyncState(cmd.OutOrStdout(), st)
		}
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncStatusCmd, syncPullCmd, syncOnlineCmd)
}
