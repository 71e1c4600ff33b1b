package client

import (
	"fmt"
	"strconv"
	"strings"

	transports "github.com/rzbill/docket/internal/cmd/client/transports"
	"github.com/spf13/cobra"
)

// NewTasksCommand constructs the `tasks` command group and subcommands.
func NewTasksCommand(baseURL BaseURLFunc) *cobra.Command {
	tasksCmd := &cobra.Command{Use: "tasks", Short: "Background task operations"}
	tasksCmd.PersistentFlags().StringP("tenant", "t", "default", "Tenant (database)")
	tasksCmd.AddCommand(
		newTasksListCommand(baseURL),
		newTasksStatsCommand(baseURL),
		newTasksEnqueueCommand(baseURL),
		newTasksDrainCommand(baseURL),
	)
	return tasksCmd
}

func newTasksListCommand(baseURL BaseURLFunc) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List pending tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			filter, _ := cmd.Flags().GetString("filter")
			limit, _ := cmd.Flags().GetInt("limit")
			list, err := transportFor(baseURL).ListTasks(cmd.Context(), tenant, filter, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}
	listCmd.Flags().String("filter", "", "CEL filter, e.g. kind == \"reduce-index\" && age_ms > 1000")
	listCmd.Flags().Int("limit", 100, "Maximum rows to return")
	return listCmd
}

func newTasksStatsCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue size for a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			st, err := transportFor(baseURL).Stats(cmd.Context(), tenant)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
}

func newTasksEnqueueCommand(baseURL BaseURLFunc) *cobra.Command {
	enqueueCmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Add a task",
		Example: `  docket tasks enqueue --kind reduce-index --index 3 --key users/1 --key users/2
  docket tasks enqueue --kind touch-references --etag users/1=42`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			kind, _ := cmd.Flags().GetString("kind")
			keys, _ := cmd.Flags().GetStringSlice("key")
			etagPairs, _ := cmd.Flags().GetStringSlice("etag")

			req := transports.EnqueueRequest{Kind: kind, Keys: keys}
			if cmd.Flags().Changed("index") {
				idx, _ := cmd.Flags().GetInt32("index")
				req.IndexID = &idx
			}
			if len(etagPairs) > 0 {
				etags, err := parseEtags(etagPairs)
				if err != nil {
					return err
				}
				req.Etags = etags
			}
			id, err := transportFor(baseURL).Enqueue(cmd.Context(), tenant, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued: %d\n", id)
			return nil
		},
	}
	enqueueCmd.Flags().String("kind", "", "remove-from-index|reduce-index|touch-references")
	enqueueCmd.Flags().Int32("index", 0, "Index id (required)")
	enqueueCmd.Flags().StringSlice("key", nil, "Document or reduce key (repeatable)")
	enqueueCmd.Flags().StringSlice("etag", nil, "key=etag pair for touch-references (repeatable)")
	_ = enqueueCmd.MarkFlagRequired("kind")
	_ = enqueueCmd.MarkFlagRequired("index")
	return enqueueCmd
}

func newTasksDrainCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Run one drain cycle now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			res, err := transportFor(baseURL).Drain(cmd.Context(), tenant)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func parseEtags(pairs []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(pairs))
	for _, p := range pairs {
		i := strings.LastIndexByte(p, '=')
		if i <= 0 {
			return nil, fmt.Errorf("invalid --etag %q; expected key=etag", p)
		}
		etag, err := strconv.ParseUint(p[i+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --etag %q: %w", p, err)
		}
		out[p[:i]] = etag
	}
	return out, nil
}
