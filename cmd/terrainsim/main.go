// Package main runs a planet headless: a viewer orbits the surface while the
// quadtree splits and merges, metrics are served on the admin endpoint and a
// JSON snapshot of the final tree can be written on exit.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Faultbox/quadsphere/internal/config"
	"github.com/Faultbox/quadsphere/internal/logger"
	"github.com/Faultbox/quadsphere/internal/terrain/provider"
	"github.com/Faultbox/quadsphere/internal/terrain/quadtree"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		logger.Error("terrainsim failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("terrainsim finished")
}

func run(ctx context.Context, cfg *config.Config) error {
	height, err := cfg.HeightProvider(logger.Named("provider"))
	if err != nil {
		return fmt.Errorf("height provider: %w", err)
	}
	texture, err := cfg.TextureProvider()
	if err != nil {
		return fmt.Errorf("texture provider: %w", err)
	}
	mesh, err := cfg.MeshSettings(height, texture)
	if err != nil {
		return err
	}
	opts, err := cfg.TreeOptions(mesh)
	if err != nil {
		return err
	}
	gen, err := cfg.Generator(mesh, logger.Named("meshgen"))
	if err != nil {
		return err
	}
	defer gen.Close()

	sink := &countingSink{}
	treeOpts := []quadtree.Option{
		quadtree.WithLogger(logger.Named("quadtree")),
		quadtree.OnGenerationFinished(func() {
			logger.Info("generation settled", zap.Int64("patches", sink.live()))
		}),
	}
	if s, ok := height.(*provider.Streaming); ok {
		treeOpts = append(treeOpts, quadtree.WithStreaming(s))
		defer s.Close()
	}

	tree, err := quadtree.New(opts, gen, sink, treeOpts...)
	if err != nil {
		return err
	}
	defer tree.Close()

	if cfg.Metrics.Addr != "" {
		admin := adminServer(cfg.Metrics.Addr)
		go func() {
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("admin server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = admin.Shutdown(shutdownCtx)
		}()
		logger.Info("admin endpoint listening", zap.String("addr", cfg.Metrics.Addr))
	}

	logger.Info("starting flyby",
		zap.Float64("radius", cfg.Planet.Radius),
		zap.Int("quadSize", cfg.Planet.QuadSize),
		zap.String("height", cfg.Height.Provider),
		zap.String("generation", cfg.Generation.Path),
		zap.Int("ticks", cfg.Sim.Ticks),
	)

	f := newFlyby(tree, cfg.Planet.Radius, cfg.Sim)
	if err := f.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	stats := tree.Stats()
	logger.Info("final tree",
		zap.Int("quads", stats.Quads),
		zap.Ints("perLevel", stats.PerLevel),
		zap.Int("rendered", stats.Rendered),
		zap.Int64("patchEvents", sink.events()),
	)

	if cfg.Sim.SnapshotPath != "" {
		if err := writeSnapshot(cfg.Sim.SnapshotPath, tree.Snapshot()); err != nil {
			return err
		}
		logger.Info("snapshot written", zap.String("path", cfg.Sim.SnapshotPath))
	}
	return nil
}

func adminServer(addr string) *http.Server {
	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	return &http.Server{
		Addr:              addr,
		Handler:           &admin,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
