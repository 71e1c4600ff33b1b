package client

import (
	"fmt"

	transports "github.com/rzbill/docket/internal/cmd/client/transports"
	"github.com/spf13/cobra"
)

// NewHealthCommand checks server health over gRPC (DOCKET_GRPC).
func NewHealthCommand() *cobra.Command {
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health over gRPC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, _ := cmd.Flags().GetString("service")
			status, err := transports.NewGrpcHealth(dialGRPCContext).Check(cmd.Context(), service)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "status:", status)
			if status != "SERVING" {
				return fmt.Errorf("server is %s", status)
			}
			return nil
		},
	}
	healthCmd.Flags().String("service", "", "Health service name (empty for overall)")
	return healthCmd
}
