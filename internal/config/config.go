package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"github.com/rzbill/docket/pkg/log"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// DataDir is empty by default; callers resolve it with DefaultDataDir.
	DataDir         string `json:"dataDir" yaml:"dataDir"`
	Fsync           string `json:"fsync" yaml:"fsync" default:"always"`
	FsyncIntervalMs int    `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs" default:"5"`
	HTTPAddr        string `json:"httpAddr" yaml:"httpAddr" default:":8080"`
	GRPCAddr        string `json:"grpcAddr" yaml:"grpcAddr" default:":9090"`

	Logging log.Config    `json:"logging" yaml:"logging"`
	Queue   QueueConfig   `json:"queue" yaml:"queue"`
	Worker  WorkerConfig  `json:"worker" yaml:"worker"`
	Tenants TenantsConfig `json:"tenants" yaml:"tenants"`
}

// QueueConfig tunes dequeue-and-merge.
type QueueConfig struct {
	MergeBudget int `json:"mergeBudget" yaml:"mergeBudget" default:"5120"`
}

// WorkerConfig controls the drain worker.
type WorkerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" default:"true"`
	// Schedule is a cron spec or @every descriptor.
	Schedule          string `json:"schedule" yaml:"schedule" default:"@every 1s"`
	MaxBatchesPerKind int    `json:"maxBatchesPerKind" yaml:"maxBatchesPerKind" default:"64"`
}

// TenantsConfig captures tenant (database) creation rules.
type TenantsConfig struct {
	AllowAutoCreate bool   `json:"allowAutoCreate" yaml:"allowAutoCreate" default:"true"`
	Default         string `json:"default" yaml:"default" default:"default"`
	NameRegex       string `json:"nameRegex" yaml:"nameRegex" default:"[a-z0-9-_]{1,64}"`
	MaxTenants      int    `json:"maxTenants" yaml:"maxTenants"`
}

// Default returns built-in defaults.
func Default() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		// Only reachable with a malformed default tag.
		panic(err)
	}
	return cfg
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults. Fields missing from the file keep their defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config: read")
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "config: parse %s", path)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "config: parse %s", path)
		}
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	switch c.Fsync {
	case "always", "interval", "never":
	default:
		return errors.Errorf("config: invalid fsync %q; use always|interval|never", c.Fsync)
	}
	if c.Queue.MergeBudget <= 0 {
		return errors.New("config: queue.mergeBudget must be positive")
	}
	if c.Worker.MaxBatchesPerKind <= 0 {
		return errors.New("config: worker.maxBatchesPerKind must be positive")
	}
	if _, err := regexp.Compile("^" + c.Tenants.NameRegex + "$"); err != nil {
		return errors.Wrap(err, "config: tenants.nameRegex")
	}
	return nil
}

// FsyncInterval returns FsyncIntervalMs as a duration.
func (c Config) FsyncInterval() time.Duration {
	return time.Duration(c.FsyncIntervalMs) * time.Millisecond
}
