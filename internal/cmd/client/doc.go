// Package client contains Cobra CLI commands that talk to a running docket
// server: tasks over the HTTP API, health over gRPC.
//
// Example:
//
//	root := client.NewRoot(client.HTTPBaseFromEnv)
//	_ = root.Execute()
package client
