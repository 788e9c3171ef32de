package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/quickreply/internal/auth"
	"github.com/alfredjeanlab/quickreply/internal/config"
	"github.com/alfredjeanlab/quickreply/internal/ui"
)

// The session lives in the coordinator's own store, so these commands open
// it directly instead of going through the HTTP API.
var authCmd = &cobra.Command{
	Use:               "auth",
	Short:             "Manage the remote sync session",
	GroupID:           "system",
	PersistentPreRunE: noClient,
}

func withSessions(fn func(*auth.Sessions) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	kv, err := openStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer kv.Close()
	return fn(auth.NewSessions(kv))
}

func promptToken() (string, error) {
	if !ui.IsInteractive() {
		return "", errors.New("token argument is required without a terminal")
	}
	p := promptui.Prompt{
		Label: "Token",
		Mask:  '*',
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("token is required")
			}
			return nil
		},
	}
	return p.Run()
}

var authLoginCmd = &cobra.Command{
	Use:   "login [<token>]",
	Short: "Store a session token (prompts when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var token string
		if len(args) == 1 {
			token = args[0]
		} else {
			t, err := promptToken()
			if err != nil {
				return err
			}
			token = t
		}
		principal, _ := cmd.Flags().GetString("principal")

		return withSessions(func(s *auth.Sessions) error {
			sess, err := s.Login(cmd.Context(), token, principal)
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]any{"principal": sess.Principal, "expiry": sess.Expiry})
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (expires %s)\n", sess.Principal, formatTime(sess.Expiry))
			return nil
		})
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(func(s *auth.Sessions) error {
			if err := s.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		})
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(func(s *auth.Sessions) error {
			sess, ok := s.Current(cmd.Context())
			if jsonOutput {
				out := map[string]any{"authenticated": ok}
				if ok {
					out["principal"] = sess.Principal
					out["expiry"] = sess.Expiry
				}
				printJSON(cmd.OutOrStdout(), out)
				return nil
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), ui.RenderWarn("signed out"))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s as %s (expires %s)\n", ui.RenderOK("signed in"), sess.Principal, formatTime(sess.Expiry))
			return nil
		})
	},
}

func init() {
	authLoginCmd.Flags().String("principal", "", "principal to use when the token carries no subject")
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd)
}
