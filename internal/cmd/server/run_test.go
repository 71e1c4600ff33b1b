package serverrun

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/docket/internal/config"
	"github.com/rzbill/docket/internal/indexing"
	pebblestore "github.com/rzbill/docket/internal/storage/pebble"
	"github.com/rzbill/docket/internal/tasks"
)

func TestResolveFillsFromConfig(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.DataDir = "/custom/data"
	cfg.Fsync = "interval"

	opts, mode, err := Options{Config: cfg}.resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if opts.DataDir != "/custom/data" {
		t.Errorf("data dir = %s", opts.DataDir)
	}
	if opts.HTTPAddr != ":8080" || opts.GRPCAddr != ":9090" {
		t.Errorf("addrs = %s %s", opts.HTTPAddr, opts.GRPCAddr)
	}
	if mode != pebblestore.FsyncModeInterval {
		t.Errorf("fsync mode = %v", mode)
	}
	if opts.Logger == nil {
		t.Error("expected nop logger")
	}
}

func TestResolveKeepsExplicitValues(t *testing.T) {
	opts, _, err := Options{DataDir: "/x", HTTPAddr: ":1", GRPCAddr: ":2", Config: cfgpkg.Default()}.resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if opts.DataDir != "/x" || opts.HTTPAddr != ":1" || opts.GRPCAddr != ":2" {
		t.Errorf("unexpected %+v", opts)
	}
}

func TestResolveRejectsBadFsync(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Fsync = "sometimes"
	if _, _, err := (Options{Config: cfg}).resolve(); err == nil {
		t.Fatal("expected error")
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

// TestRunServesAndDrains starts a real server with a fast schedule and waits
// for the worker to hand a merged task to the applier.
func TestRunServesAndDrains(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	cfg := cfgpkg.Default()
	cfg.Fsync = "never"
	cfg.Worker.Schedule = "@every 1s"
	httpAddr := freeAddr(t)

	applied := make(chan tasks.Task, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{
			DataDir:  filepath.Join(t.TempDir(), "data"),
			HTTPAddr: httpAddr,
			GRPCAddr: freeAddr(t),
			Config:   cfg,
			Applier: indexing.ApplierFunc(func(_ context.Context, _ string, task tasks.Task) error {
				applied <- task
				return nil
			}),
		})
	}()

	base := "http://" + httpAddr
	if !waitHealthy(base, 5*time.Second) {
		cancel()
		t.Fatalf("server did not become healthy: %v", <-done)
	}
	post(t, base+"/v1/tenants/default/indexes", `{"name":"orders"}`)
	post(t, base+"/v1/tenants/default/tasks", `{"kind":"reduce-index","indexId":1,"keys":["a","b"]}`)

	select {
	case task := <-applied:
		if task.Kind() != tasks.KindReduceIndex || task.NumberOfKeys() != 2 {
			t.Errorf("applied %s with %d keys", task.Kind(), task.NumberOfKeys())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker never applied the task")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func waitHealthy(base string, limit time.Duration) bool {
	deadline := time.Now().Add(limit)
	for time.Now().Before(deadline) {
		res, err := http.Get(base + "/v1/healthz")
		if err == nil {
			res.Body.Close()
			if res.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(25 * time.Millisecond)
	}
	return false
}

func post(t *testing.T, url, body string) {
	t.Helper()
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	res.Body.Close()
	if res.StatusCode >= 300 {
		t.Fatalf("post %s: status %d", url, res.StatusCode)
	}
}
