package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haniscreator/patient-portal/internal/adapter"
	"github.com/haniscreator/patient-portal/internal/config"
	"github.com/haniscreator/patient-portal/internal/handler"
	"github.com/haniscreator/patient-portal/internal/logger"
	"github.com/haniscreator/patient-portal/internal/middleware"
	"github.com/haniscreator/patient-portal/internal/service"
)

func main() {
	// 1) Load .env and environment
	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if cfg.EnvFileLoaded {
		log.Info("loaded environment .env")
	} else {
		log.Info("no .env file found (this may be fine if env is injected)")
	}

	// 2) Wire the patients API client and services
	api, err := adapter.NewPatientAPIAdapter(cfg.PatientAPIBase, cfg.APITimeout, log.Named("adapter"))
	if err != nil {
		log.Fatal("could not create patients api client", zap.String("base", cfg.PatientAPIBase), zap.Error(err))
	}
	renderer := service.NewListRenderer(api, cfg.PreviewLimit, log.Named("renderer"))

	// 3) Setup Gin after all deps are ready
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(log.Named("http")))

	r.GET("/health", healthHandler)
	handler.RegisterPortalRoutes(r, api, renderer, log.Named("portal"))

	// 4) Start server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	run(srv, log, zap.String("patients_api", cfg.PatientAPIBase))
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// run serves until SIGINT/SIGTERM, then drains in-flight requests.
func run(srv *http.Server, log *zap.Logger, fields ...zap.Field) {
	go func() {
		log.Info("portal listening", append(fields, zap.String("addr", srv.Addr))...)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
	log.Info("portal stopped")
}
