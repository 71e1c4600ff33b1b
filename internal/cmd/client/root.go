package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the docket client.
// It registers the tasks, index and health command groups.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "docket",
		Short: "docket client commands",
	}
	AddCommands(root, baseURL)
	return root
}

// AddCommands registers the client command groups on root.
func AddCommands(root *cobra.Command, baseURL BaseURLFunc) {
	root.AddCommand(
		NewTasksCommand(baseURL),
		NewIndexCommand(baseURL),
		NewHealthCommand(),
	)
}
