// Command literoomd hosts the edit engine's control plane: a single worker
// goroutine owning decode/resize/pipeline/executor/cache state, exposed
// over a local gin HTTP server and a gorilla/websocket duplex channel, per
// spec.md §5-6. It stands in for the UI-side host process the base
// specification treats as an external collaborator.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/literoom/engine/config"
	"github.com/literoom/engine/db"
	"github.com/literoom/engine/internal/cache"
	"github.com/literoom/engine/internal/catalog"
	"github.com/literoom/engine/internal/executor"
	"github.com/literoom/engine/internal/logging"
	"github.com/literoom/engine/internal/worker"
)

func main() {
	config.LoadEnvironment()
	cfg := config.LoadAppConfig()

	log := logging.Must(config.IsDevelopmentMode())
	defer log.Sync()

	if cfg.CatalogConfig.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Fatal("resolve working directory for catalog root", zap.Error(err))
		}
		cfg.CatalogConfig.Root = wd
	}

	gormDB := db.Connect(cfg.CatalogConfig.DatabaseDir, cfg.CatalogConfig.DatabaseName)
	migrator := db.NewMigrationConfig(filepath.Join(cfg.CatalogConfig.DatabaseDir, cfg.CatalogConfig.DatabaseName+".db"))
	if err := migrator.Migrate(); err != nil {
		log.Fatal("run catalog migrations", zap.Error(err))
	}

	handle, err := catalog.NewLocalDirectoryHandle(cfg.CatalogConfig.Root)
	if err != nil {
		log.Fatal("open catalog directory handle", zap.Error(err))
	}
	repo := catalog.NewRepository(gormDB)
	scanner := catalog.NewScanner(handle, repo)

	cpu := executor.NewCPUBackend()
	var selector *executor.BackendSelector
	if cfg.EngineConfig.GPUEnabled {
		selector = executor.NewBackendSelector(executor.NewGPUBackend(), cpu)
	} else {
		selector = executor.NewBackendSelector(nil, cpu)
	}
	guard := executor.NewMemoryGuard()
	selector.SetMemoryGuard(guard)

	w := worker.New(selector)
	defer w.Stop()

	source := newEngineSource(repo, handle)
	cacheSvc, err := cache.NewService(source, cfg.CacheConfig.DiskDir)
	if err != nil {
		log.Fatal("build thumbnail/preview cache", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cacheSvc.Run(ctx)

	h := newHub(logging.Named(log, "ws"), w, source)
	srv := &server{
		log:     logging.Named(log, "http"),
		w:       w,
		cache:   cacheSvc,
		source:  source,
		repo:    repo,
		handle:  handle,
		scanner: scanner,
		hub:     h,
	}

	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerConfig.Port,
		Handler: newRouter(srv),
	}

	go func() {
		log.Info("literoomd listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

