package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deusflow/aznews/internal/logger"
	"github.com/deusflow/aznews/internal/metrics"
)

func newMonitorRouter(m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		stats := m.GetStats()
		status, code := "ok", http.StatusOK
		if !m.Healthy() {
			status, code = "error", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":      status,
			"last_run":    stats["last_run_time"],
			"last_status": stats["last_status"],
			"last_error":  stats["last_error"],
		})
	})
	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, m.GetStats())
	})
	return router
}

// startMonitoringServer serves /health and /metrics until ctx is done.
func startMonitoringServer(ctx context.Context, port string) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newMonitorRouter(metrics.Global),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting monitoring server", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("monitoring server error", "error", err)
	}
}
