// Package httpserver exposes the worker's operational HTTP surface
// (liveness/readiness) on a gin router, grounded on the reference service's
// inline /health endpoint in its process entrypoint.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mfittko/raged/pkg/queue"
)

// HealthReporter is the subset of queue.Pool the server needs for /readyz.
type HealthReporter interface {
	Health(ctx context.Context) queue.PoolHealth
}

// New builds the gin engine serving /healthz and /readyz. /readyz returns
// 200 only once the pool has started and the adapter's last reachability
// check succeeded; otherwise it returns 503 with the same health body so
// callers can see why.
func New(reporter HealthReporter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		health := reporter.Health(c.Request.Context())
		status := http.StatusOK
		if !health.IsHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, health)
	})

	return router
}

// Run starts the server on addr and shuts it down when ctx is cancelled.
func Run(ctx context.Context, addr string, reporter HealthReporter) *http.Server {
	srv := &http.Server{
		Addr:    addr,
		Handler: New(reporter),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv
}
