package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"execbox/internal/httpapi"
	"execbox/internal/sandbox"
	"execbox/internal/sandbox/engine"
	"execbox/internal/sandbox/runner"
	"execbox/internal/sandbox/runtime"
	"execbox/internal/sandbox/scheduler"
	"execbox/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/sandboxd.yaml", "path to config file")
	flag.Parse()

	cfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	registry, err := runtime.NewRegistry(cfg.Languages)
	if err != nil {
		logger.Fatal(ctx, "build language registry failed", zap.Error(err))
	}
	eng, err := engine.NewEngine(cfg.Sandbox)
	if err != nil {
		logger.Fatal(ctx, "create sandbox engine failed", zap.Error(err))
	}

	run := runner.New(eng, registry, runner.Config{
		OutputByteLimit: cfg.Limits.OutputByteLimit,
		PollInterval:    cfg.Limits.PollInterval,
	})
	sched := scheduler.New(cfg.Scheduler, run)
	sched.Start()

	svc := sandbox.NewService(registry, sched, cfg.Limits.Admission)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	httpapi.NewHandler(svc).Register(router)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "sandboxd listening",
			zap.String("addr", cfg.Server.Addr),
			zap.Int("maxConcurrentJobs", cfg.Scheduler.MaxConcurrentJobs),
			zap.Strings("languages", languageIDs(registry)))
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info(ctx, "shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "http server failed", zap.Error(err))
		}
	}

	// Stop accepting requests first, then let in-flight jobs drain.
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "http server shutdown failed", zap.Error(err))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error(ctx, "scheduler drain incomplete", zap.Error(err))
	}
	logger.Info(ctx, "sandboxd stopped")
}

func languageIDs(registry *runtime.Registry) []string {
	specs := registry.Languages()
	ids := make([]string, 0, len(specs))
	for _, s := range specs {
		ids = append(ids, s.ID)
	}
	return ids
}
