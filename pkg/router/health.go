package router

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"omnichan/backend/pkg/health"

	"github.com/gin-gonic/gin"
)

// setupHealthRoutes registers health check endpoints backed by the
// component checker plus a lightweight inline summary.
func (r *Router) setupHealthRoutes() {
	checker := health.NewChecker(r.Logger, 30*time.Second)

	checker.RegisterDatabaseCheck(func() error {
		return r.Container.DB.Exec("SELECT 1").Error
	})
	checker.RegisterCheck("redis", func() (health.Status, string, error) {
		if err := r.Container.Redis.Ping(); err != nil {
			return health.StatusDegraded, "Redis unreachable, profile cache degraded", err
		}
		return health.StatusUp, "Redis connection is established", nil
	})
	checker.RegisterCheck("dispatcher", func() (health.Status, string, error) {
		pending := r.Container.Dispatcher.Pending()
		desc := fmt.Sprintf("%d events pending", pending)
		if pending >= r.Config.Dispatcher.QueueSize {
			return health.StatusDegraded, desc, fmt.Errorf("dispatch queue is full")
		}
		return health.StatusUp, desc, nil
	})

	checker.Start()

	summaryHandler := func(c *gin.Context) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		c.JSON(200, gin.H{
			"status":    "ok",
			"version":   os.Getenv("APP_VERSION"),
			"timestamp": time.Now().Format(time.RFC3339),
			"components": gin.H{
				"dispatcher": gin.H{
					"pending": r.Container.Dispatcher.Pending(),
				},
				"websocket": gin.H{
					"active_connections": r.Container.Hub.ConnectedClients(),
				},
			},
			"memory": gin.H{
				"alloc_mb":  memStats.Alloc / 1024 / 1024,
				"sys_mb":    memStats.Sys / 1024 / 1024,
				"gc_cycles": memStats.NumGC,
			},
		})
	}

	r.Engine.GET("/health", summaryHandler)
	r.Engine.GET("/api/health", gin.WrapF(checker.HTTPHandler()))
}
