package main

import (
	"fmt"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/alfredjeanlab/quickreply/internal/client"
	"github.com/alfredjeanlab/quickreply/internal/ui"
)

var grpcAddr string

func defaultGRPCAddr() string {
	if a := activeGRPCAddr(); a != "" {
		return a
	}
	return "localhost:7392"
}

var healthCmd = &cobra.Command{
	Use:               "health",
	Short:             "Check the coordinator's gRPC health service",
	GroupID:           "system",
	Args:              cobra.NoArgs,
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		hc, err := client.NewHealthClient(grpcAddr, authToken)
		if err != nil {
			return err
		}
		defer hc.Close()

		resp, err := hc.Check(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
			if err != nil {
				return fmt.Errorf("encoding response: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		status := resp.GetStatus()
		fmt.Fprintln(cmd.OutOrStdout(), ui.Status(status == healthpb.HealthCheckResponse_SERVING, status.String(), status.String()))
		if status != healthpb.HealthCheckResponse_SERVING {
			return fmt.Errorf("coordinator is %s", status)
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().StringVar(&grpcAddr, "grpc-addr", defaultGRPCAddr(), "coordinator gRPC address")
}
