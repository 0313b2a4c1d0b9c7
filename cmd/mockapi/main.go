package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haniscreator/patient-portal/internal/config"
	"github.com/haniscreator/patient-portal/internal/handler"
	"github.com/haniscreator/patient-portal/internal/logger"
	"github.com/haniscreator/patient-portal/internal/middleware"
	"github.com/haniscreator/patient-portal/internal/repository"
)

// Stub patients API for local development. Data lives in memory and is lost
// on restart.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(log.Named("http")))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	handler.RegisterAPIRoutes(r, repository.NewMemoryPatientRepo(), log.Named("api"))

	log.Info("mock patients API running", zap.String("addr", "http://localhost:"+cfg.MockAPIPort))
	if err := r.Run(":" + cfg.MockAPIPort); err != nil {
		log.Fatal("failed to run server", zap.Error(err))
	}
}
