// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package dcrwalletmgr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/dcrwalletmgr/automation"
	"github.com/decred/dcrwalletmgr/boltwallet"
	"github.com/decred/dcrwalletmgr/build"
	"github.com/decred/dcrwalletmgr/signal"
	"github.com/decred/dcrwalletmgr/walletcfg"
	"github.com/decred/dcrwalletmgr/walletmgr"
	"github.com/decred/dcrwalletmgr/walletmigrate"
	"github.com/decred/dcrwalletmgr/walletpath"
	"github.com/decred/dcrwalletmgr/walletreg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// metricsShutdownTimeout bounds the graceful stop of the metrics server.
const metricsShutdownTimeout = 5 * time.Second

// Main is the true entry point for dcrwalletmgr. It accepts a fully populated
// and validated main configuration struct and an interceptor for shutdown
// signals. It returns once a shutdown was requested and the wallets were
// released, or when startup fails.
func Main(cfg *Config, interceptor signal.Interceptor) error {
	defer func() {
		wmgrLog.Info("Shutdown complete")
		err := cfg.LogWriter.Close()
		if err != nil {
			wmgrLog.Errorf("Could not close log rotator: %v", err)
		}
	}()

	// Show version at startup.
	wmgrLog.Infof("Version: %s commit=%s, logging=%s, debuglevel=%s",
		build.Version(), build.SourceCommit(), build.LoggingType,
		cfg.DebugLevel)
	wmgrLog.Infof("Active network: %v", normalizeNetwork(
		cfg.ActiveNetParams.Name,
	))

	// Resolve the interactions between the wallet and node options before
	// touching any file.
	opts, err := interactParameters(cfg.WalletOptions)
	if err != nil {
		wmgrLog.Error(err)
		return err
	}

	sys, err := newWalletSystem(cfg, opts)
	if err != nil {
		wmgrLog.Errorf("Unable to set up wallets: %v", err)
		return err
	}

	if err := sys.load(cfg.DataDir, cfg.LegacyDataDir, &opts); err != nil {
		wmgrLog.Errorf("Unable to load wallets: %v", err)
		return err
	}

	if err := sys.start(); err != nil {
		wmgrLog.Errorf("Unable to start wallets: %v", err)
		sys.stop()
		return err
	}
	defer sys.stop()

	// Wait for shutdown signal from either a graceful server stop or from
	// the interrupt handler.
	return sys.serve(cfg.PrometheusListen, interceptor.ShutdownChannel())
}

// interactParameters applies the wallet parameter interaction rules and logs
// their outcome. The adjusted options are returned.
func interactParameters(in walletcfg.Snapshot) (walletcfg.Snapshot, error) {
	res := walletcfg.Validate(in)
	for _, info := range res.Infos {
		wcfgLog.Info(info)
	}
	for _, warning := range res.Warnings {
		wcfgLog.Warn(warning)
	}
	if !res.OK() {
		return walletcfg.Snapshot{}, fmt.Errorf("invalid wallet "+
			"options: %w", res.Err())
	}

	opts := res.Config
	wcfgLog.Debugf("Wallet options: %v", newLogClosure(func() string {
		return spew.Sdump(opts)
	}))
	return opts, nil
}

// walletSystem bundles the wallet manager with the services driving it.
type walletSystem struct {
	mgr     *walletmgr.Manager
	sched   *automation.Server
	metrics *prometheus.Registry
}

// newWalletSystem wires the bolt backend, the maintenance scheduler and the
// metrics registry into a wallet manager.
func newWalletSystem(cfg *Config, opts walletcfg.Snapshot) (*walletSystem,
	error) {

	reg := prometheus.NewRegistry()
	err := reg.Register(collectors.NewProcessCollector(
		collectors.ProcessCollectorOpts{},
	))
	if err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	metrics, err := walletmgr.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	backend := boltwallet.New(boltwallet.Options{
		Upgrade:   opts.Upgrade.Value,
		ZapMode:   opts.ZapMode,
		Rescan:    opts.Rescan.Value,
		Broadcast: opts.Broadcast.Value,
		Timeout:   cfg.DBTimeout,
	})

	sched := automation.NewServer()
	mgr := walletmgr.New(&walletmgr.Config{
		Backend:             backend,
		Registry:            walletreg.New[walletmgr.Wallet](),
		Scheduler:           sched,
		Disabled:            opts.DisableWallet,
		Salvage:             opts.Salvage.Value,
		MaintenanceInterval: cfg.Automation.MaintenanceInterval,
		Metrics:             metrics,
	})

	return &walletSystem{
		mgr:     mgr,
		sched:   sched,
		metrics: reg,
	}, nil
}

// load resolves the wallet directory, copies a legacy wallet into it when
// applicable and then verifies and loads the configured wallets. On failure
// every wallet loaded so far is released.
func (s *walletSystem) load(dataDir, legacyDataDir string,
	opts *walletcfg.Snapshot) error {

	if opts.DisableWallet {
		wmgrLog.Info("Wallet disabled!")
		if _, err := s.mgr.Verify(nil, ""); err != nil {
			return err
		}
		return s.mgr.Load(nil)
	}

	var walletDir string
	if opts.WalletDirSet {
		dir, err := walletpath.ResolveWalletDir(opts.WalletDir)
		if err != nil {
			return err
		}
		walletDir = dir
		opts.WalletDir = dir
	} else {
		walletDir = walletpath.DefaultWalletDir(dataDir)
	}
	wmgrLog.Infof("Using wallet directory %s", walletDir)

	// Only the default wallet can take over a legacy installation.
	if len(opts.Wallets) == 0 {
		copied, err := walletmigrate.MaybeMigrate(&walletmigrate.Config{
			DataDir:       dataDir,
			WalletDir:     walletDir,
			LegacyDataDir: legacyDataDir,
		})
		switch {
		case err != nil:
			wmgrLog.Errorf("Unable to copy legacy wallet: %v", err)
		case copied:
			wmgrLog.Infof("Copied legacy wallet from %s",
				legacyDataDir)
		}
	}

	res, err := s.mgr.Verify(opts.Wallets, walletDir)
	if err != nil {
		return err
	}
	for _, warning := range res.Warnings {
		wmgrLog.Warn(warning)
	}
	if !res.OK() {
		return res.Err()
	}

	if err := s.mgr.Load(res.Locations); err != nil {
		if uerr := s.mgr.Unload(); uerr != nil {
			wmgrLog.Errorf("Unable to unload wallets: %v", uerr)
		}
		return err
	}

	return nil
}

// start launches the wallets and their maintenance.
func (s *walletSystem) start() error {
	if err := s.sched.Start(); err != nil {
		return err
	}
	return s.mgr.Start()
}

// stop halts maintenance, then flushes, stops and releases the wallets.
func (s *walletSystem) stop() {
	if err := s.sched.Stop(); err != nil {
		wmgrLog.Errorf("Unable to stop scheduler: %v", err)
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"flush", s.mgr.Flush},
		{"stop", s.mgr.Stop},
		{"unload", s.mgr.Unload},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			wmgrLog.Errorf("Unable to %s wallets: %v", step.name, err)
		}
	}
}

// serve exposes the metrics on listen, if set, until quit is closed. It
// returns early if the metrics server fails.
func (s *walletSystem) serve(listen string, quit <-chan struct{}) error {
	g, ctx := errgroup.WithContext(context.Background())

	var srv *http.Server
	if listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metricsHandler())
		srv = &http.Server{
			Addr:              listen,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			wmgrLog.Infof("Metrics server listening on %s", listen)
			err := srv.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		select {
		case <-quit:
			wmgrLog.Info("Received shutdown request")
		case <-ctx.Done():
		}

		if srv == nil {
			return nil
		}
		sctx, cancel := context.WithTimeout(
			context.Background(), metricsShutdownTimeout,
		)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// metricsHandler serves the wallet metrics in the Prometheus text format.
func (s *walletSystem) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{})
}
