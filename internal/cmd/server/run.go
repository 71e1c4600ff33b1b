package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	cfgpkg "github.com/rzbill/docket/internal/config"
	"github.com/rzbill/docket/internal/indexing"
	"github.com/rzbill/docket/internal/runtime"
	grpcserver "github.com/rzbill/docket/internal/server/grpc"
	httpserver "github.com/rzbill/docket/internal/server/http"
	pebblestore "github.com/rzbill/docket/internal/storage/pebble"
	logpkg "github.com/rzbill/docket/pkg/log"
	"golang.org/x/sync/errgroup"
)

// Options controls a server run. Addresses and storage settings override the
// matching Config fields when set.
type Options struct {
	DataDir  string
	GRPCAddr string
	HTTPAddr string
	Config   cfgpkg.Config
	Logger   logpkg.Logger
	// Applier receives merged tasks; the runtime logs them when nil.
	Applier indexing.Applier
}

// resolve fills empty options from cfg.
func (o Options) resolve() (Options, pebblestore.FsyncMode, error) {
	if o.DataDir == "" {
		o.DataDir = o.Config.ResolveDataDir()
	}
	if o.HTTPAddr == "" {
		o.HTTPAddr = o.Config.HTTPAddr
	}
	if o.GRPCAddr == "" {
		o.GRPCAddr = o.Config.GRPCAddr
	}
	if o.Logger == nil {
		o.Logger = logpkg.NewNopLogger()
	}
	mode, err := pebblestore.ParseFsyncMode(o.Config.Fsync)
	return o, mode, err
}

// Run opens the runtime, starts the drain worker and both transports, and
// blocks until ctx is cancelled, a signal arrives, or a server fails.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, fsync, err := opts.resolve()
	if err != nil {
		return err
	}
	logger := opts.Logger
	rt, err := runtime.Open(runtime.Options{
		DataDir:       filepath.Join(opts.DataDir, "store"),
		Fsync:         fsync,
		FsyncInterval: opts.Config.FsyncInterval(),
		Config:        opts.Config,
		Logger:        logger,
		Applier:       opts.Applier,
	})
	if err != nil {
		return errors.Wrap(err, "open runtime")
	}
	defer rt.Close()

	logger.Info("starting docket server",
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("grpc", opts.GRPCAddr),
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("fsync", opts.Config.Fsync),
		logpkg.Bool("worker", opts.Config.Worker.Enabled),
	)

	if opts.Config.Worker.Enabled {
		if err := rt.Worker().Start(sctx); err != nil {
			return errors.Wrap(err, "start worker")
		}
	}

	gsrv := grpcserver.New(rt, logger)
	hsrv := httpserver.New(rt, logger)

	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error {
		return errors.Wrap(gsrv.ListenAndServe(gctx, opts.GRPCAddr), "grpc")
	})
	g.Go(func() error {
		return errors.Wrap(hsrv.ListenAndServe(gctx, opts.HTTPAddr), "http")
	})
	err = g.Wait()

	// Stop the worker before the runtime closes the DB.
	wctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if werr := rt.Worker().Stop(wctx); werr != nil {
		logger.Warn("worker stop timed out", logpkg.Err(werr))
	}
	gsrv.Close()
	hsrv.Close()
	logger.Info("docket server stopped")
	return err
}
