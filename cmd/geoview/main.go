package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wgdzlh/geoview/internal/config"
	"github.com/wgdzlh/geoview/internal/gdalbox"
	"github.com/wgdzlh/geoview/internal/ingest"
	"github.com/wgdzlh/geoview/internal/log"
	"github.com/wgdzlh/geoview/internal/server"

	"github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	if err := log.Init(cfg.LogLevel); err != nil {
		stdlog.Fatalf("init logger: %v", err)
	}
	defer log.Sync()

	if err := os.MkdirAll(cfg.TmpDir, os.ModePerm); err != nil {
		log.Error("create tmp dir failed", zap.String("dir", cfg.TmpDir), zap.Error(err))
		os.Exit(1)
	}

	godal.RegisterAll()

	box := gdalbox.NewToolbox(
		gdalbox.WithPreviewSize(cfg.PreviewSize),
		gdalbox.WithPercentileClip(cfg.PercentileClip),
	)
	orch := ingest.NewOrchestrator(box, cfg.TmpDir)
	srv := server.New(cfg, box, orch)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		log.Info("http listen", zap.String("addr", cfg.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	shutdownSignalCh := make(chan os.Signal, 1)
	signal.Notify(shutdownSignalCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-shutdownSignalCh:
		log.Info("signal received, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErrCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(shutdownCtx)
	log.Info("server stopped")
}
