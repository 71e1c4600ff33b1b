package runtime

import (
	"context"
	"errors"
	"testing"

	cfgpkg "github.com/rzbill/docket/internal/config"
	pebblestore "github.com/rzbill/docket/internal/storage/pebble"
)

func openRuntime(t *testing.T, dir string, cfg cfgpkg.Config) *Runtime {
	t.Helper()
	rt, err := Open(Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways, Config: cfg})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	return rt
}

func TestOpenCloseHealth(t *testing.T) {
	rt := openRuntime(t, t.TempDir(), cfgpkg.Default())
	defer rt.Close()
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if rt.Worker() == nil || rt.Queue() == nil {
		t.Fatalf("worker and queue should be wired")
	}
	if rt.Queue().MergeBudget() != 5120 {
		t.Fatalf("merge budget from config: %d", rt.Queue().MergeBudget())
	}
}

func TestDefaultTenantAndReopen(t *testing.T) {
	dir := t.TempDir()
	rt := openRuntime(t, dir, cfgpkg.Default())
	if _, err := rt.EnsureTenant("acme"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if got := len(rt.Tenants()); got != 2 {
		t.Fatalf("expected default+acme, got %d", got)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rt = openRuntime(t, dir, cfgpkg.Default())
	defer rt.Close()
	names := []string{}
	for _, tn := range rt.Tenants() {
		names = append(names, tn.Name)
	}
	if len(names) != 2 || names[0] != "acme" || names[1] != "default" {
		t.Fatalf("tenants not restored: %v", names)
	}
}

func TestResolveTenant(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Tenants.AllowAutoCreate = false
	rt := openRuntime(t, t.TempDir(), cfg)
	defer rt.Close()

	if _, err := rt.ResolveTenant("default"); err != nil {
		t.Fatalf("default tenant: %v", err)
	}
	if _, err := rt.ResolveTenant("ghost"); !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := rt.EnsureTenant("Bad Name"); err == nil {
		t.Fatalf("expected invalid name")
	}
}

func TestMaxTenants(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Tenants.MaxTenants = 1
	rt := openRuntime(t, t.TempDir(), cfg)
	defer rt.Close()
	if _, err := rt.ResolveTenant("second"); !errors.Is(err, ErrTooManyTenants) {
		t.Fatalf("expected limit error, got %v", err)
	}
}
