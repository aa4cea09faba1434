package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gcbaptista/go-vsr-engine/api"
	"github.com/gcbaptista/go-vsr-engine/config"
	"github.com/gcbaptista/go-vsr-engine/internal/cache"
	"github.com/gcbaptista/go-vsr-engine/internal/engine"
	internalErrors "github.com/gcbaptista/go-vsr-engine/internal/errors"
	"github.com/gcbaptista/go-vsr-engine/internal/ingest"
	"github.com/gcbaptista/go-vsr-engine/internal/logger"
	"github.com/gcbaptista/go-vsr-engine/internal/metrics"
	"github.com/gcbaptista/go-vsr-engine/internal/watcher"
	"github.com/gcbaptista/go-vsr-engine/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Run the retrieval engine behind its HTTP API.

Depending on the configuration the service also persists document sources in a
bolt file, shares ranked results through Redis, stages documents from a Kafka
topic and keeps an index in step with a watched directory.

Examples:
  vsr serve
  vsr serve --config vsr.yaml --port 9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.WithComponent("server")

	eng, m, err := newServiceEngine(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Error("failed to close engine", "error", err)
		}
	}()

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		api.RequestSizeLimitMiddleware(cfg.Server.MaxBodyBytes),
		api.CORSMiddleware(),
	)
	api.SetupRoutes(router, eng, m)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Kafka.Enabled {
		consumer := ingest.NewConsumer(ingest.NewReader(cfg.Kafka), eng, ingest.OptionsFromConfig(cfg.Kafka))
		log.Info("ingest consumer enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		g.Go(func() error {
			defer consumer.Close()
			return consumer.Start(gctx)
		})
	}

	if cfg.Watch.Dir != "" {
		w, err := newDirectoryWatcher(cfg.Watch, eng)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// newServiceEngine wires the engine to the storage, cache and metrics the
// configuration asks for.
func newServiceEngine(cfg *config.Config, log *slog.Logger) (*engine.Engine, *metrics.Metrics, error) {
	opts := engine.Options{
		MaxWorkers:   cfg.Jobs.MaxWorkers,
		JobRetention: cfg.Jobs.RetainFor,
		CleanupEvery: cfg.Jobs.CleanupEvery,
	}

	if cfg.Storage.DataDir != "" {
		sources, err := store.OpenDocumentStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open document store: %w", err)
		}
		opts.Sources = sources
		log.Info("document store opened", "data_dir", cfg.Storage.DataDir)
	}

	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, falling back to in-process cache", "addr", cfg.Redis.Addr, "error", err)
			opts.Cache = cache.NewMemoryCache(cfg.Redis.CacheTTL)
		} else {
			opts.Cache = redisCache
			log.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	} else {
		opts.Cache = cache.NewMemoryCache(cfg.Redis.CacheTTL)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		opts.Metrics = m
	}

	eng, err := engine.NewEngine(opts)
	if err != nil {
		if opts.Sources != nil {
			_ = opts.Sources.Close()
		}
		return nil, nil, fmt.Errorf("failed to start engine: %w", err)
	}
	return eng, m, nil
}

// newDirectoryWatcher creates the watched index when it does not exist yet.
// The index defaults to the name of the directory.
func newDirectoryWatcher(watch config.WatchConfig, eng *engine.Engine) (*watcher.Watcher, error) {
	name := watch.Index
	if name == "" {
		abs, err := filepath.Abs(watch.Dir)
		if err != nil {
			return nil, err
		}
		name = filepath.Base(abs)
	}

	err := eng.CreateIndex(config.IndexSettings{Name: name})
	if err != nil && !errors.Is(err, internalErrors.ErrIndexAlreadyExists) {
		return nil, fmt.Errorf("failed to create watched index %q: %w", name, err)
	}

	return watcher.New(watch.Dir, name, watch.Debounce, eng)
}
