package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	clientcmd "github.com/rzbill/docket/internal/cmd/client"
	serverrun "github.com/rzbill/docket/internal/cmd/server"
	cfgpkg "github.com/rzbill/docket/internal/config"
	logpkg "github.com/rzbill/docket/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "docket",
		Short: "docket background task queue",
		Long:  "docket is a single-binary durable task queue with merge-on-dequeue. This CLI runs the server and inspects queues.",
	}

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start docket server (HTTP and gRPC)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := logpkg.ApplyConfig(&cfg.Logging)
			if err != nil {
				return err
			}
			// Route stdlib logs (e.g., Pebble) through the process logger.
			logpkg.RedirectStdLog(logger)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, serverrun.Options{Config: cfg, Logger: logger}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	serverStartCmd.Flags().String("config", os.Getenv("DOCKET_CONFIG"), "Config file (.yaml, .yml or .json)")
	serverStartCmd.Flags().String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	serverStartCmd.Flags().String("grpc", "", "gRPC listen address (default :9090)")
	serverStartCmd.Flags().String("http", "", "HTTP listen address (default :8080)")
	serverStartCmd.Flags().String("fsync", "", "Fsync mode: always|interval|never")
	serverStartCmd.Flags().String("log-level", "", "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", "", "Log format: text|json")
	serverStartCmd.Flags().Bool("no-worker", false, "Do not start the scheduled drain worker")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	clientcmd.AddCommands(rootCmd, clientcmd.HTTPBaseFromEnv)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers file, then DOCKET_* env, then flags over the defaults.
func loadConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfg, err
	}
	cfgpkg.FromEnv(&cfg)

	flags := cmd.Flags()
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	str("data-dir", &cfg.DataDir)
	str("grpc", &cfg.GRPCAddr)
	str("http", &cfg.HTTPAddr)
	str("fsync", &cfg.Fsync)
	str("log-level", &cfg.Logging.Level)
	str("log-format", &cfg.Logging.Format)
	if off, _ := flags.GetBool("no-worker"); off {
		cfg.Worker.Enabled = false
	}
	return cfg, cfg.Validate()
}
