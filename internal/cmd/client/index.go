package client

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewIndexCommand constructs the `index` command group.
func NewIndexCommand(baseURL BaseURLFunc) *cobra.Command {
	indexCmd := &cobra.Command{Use: "index", Short: "Index registry operations"}
	indexCmd.PersistentFlags().StringP("tenant", "t", "default", "Tenant (database)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			defs, err := transportFor(baseURL).ListIndexes(cmd.Context(), tenant)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), defs)
		},
	}

	createCmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Register an index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			def, err := transportFor(baseURL).CreateIndex(cmd.Context(), tenant, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), def)
		},
	}

	dropCmd := &cobra.Command{
		Use:   "drop ID",
		Short: "Drop an index and delete its pending tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			id, err := strconv.ParseInt(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid index id %q", args[0])
			}
			n, err := transportFor(baseURL).DropIndex(cmd.Context(), tenant, int32(id))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dropped index %d, removed %d tasks\n", id, n)
			return nil
		},
	}

	indexCmd.AddCommand(listCmd, createCmd, dropCmd)
	return indexCmd
}
