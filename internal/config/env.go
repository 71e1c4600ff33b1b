package config

import (
	"os"
	"strconv"
)

// FromEnv overlays DOCKET_* environment variables onto cfg. Unparsable
// values are ignored.
func FromEnv(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flag := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("DOCKET_DATA_DIR", &cfg.DataDir)
	str("DOCKET_FSYNC", &cfg.Fsync)
	num("DOCKET_FSYNC_INTERVAL_MS", &cfg.FsyncIntervalMs)
	str("DOCKET_HTTP_ADDR", &cfg.HTTPAddr)
	str("DOCKET_GRPC_ADDR", &cfg.GRPCAddr)
	str("DOCKET_LOG_LEVEL", &cfg.Logging.Level)
	str("DOCKET_LOG_FORMAT", &cfg.Logging.Format)
	str("DOCKET_LOG_OUTPUT", &cfg.Logging.Output)
	num("DOCKET_QUEUE_MERGE_BUDGET", &cfg.Queue.MergeBudget)
	flag("DOCKET_WORKER_ENABLED", &cfg.Worker.Enabled)
	str("DOCKET_WORKER_SCHEDULE", &cfg.Worker.Schedule)
	num("DOCKET_WORKER_MAX_BATCHES_PER_KIND", &cfg.Worker.MaxBatchesPerKind)
	flag("DOCKET_ALLOW_AUTO_CREATE_TENANTS", &cfg.Tenants.AllowAutoCreate)
	str("DOCKET_DEFAULT_TENANT", &cfg.Tenants.Default)
	str("DOCKET_TENANT_NAME_REGEX", &cfg.Tenants.NameRegex)
	num("DOCKET_MAX_TENANTS", &cfg.Tenants.MaxTenants)
}
