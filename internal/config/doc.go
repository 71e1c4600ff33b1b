// Package config loads docket's process configuration: built-in defaults
// from struct tags, an optional YAML or JSON file, then DOCKET_* environment
// overrides.
//
//	cfg, err := config.Load("/etc/docket.yaml")
//	if err != nil {
//	    return err
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	rt, err := runtime.Open(runtime.Options{DataDir: cfg.ResolveDataDir(), Config: cfg})
package config
