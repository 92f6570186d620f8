package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"apigw-local/internal/middleware"
)

// AdminPrefix is where the admin surface is mounted
const AdminPrefix = "/__local"

// RouterConfig holds what the admin routes read from
type RouterConfig struct {
	Service string
	Routes  RouteLister
	// Journal and JournalHealth are nil when the journal is disabled.
	Journal       InvocationReader
	JournalHealth HealthChecker
	// Gatherer is nil when metrics are disabled.
	Gatherer prometheus.Gatherer
}

// SetupRoutes configures the admin routes
func SetupRoutes(router *gin.Engine, config *RouterConfig) {
	admin := router.Group(AdminPrefix)
	admin.Use(middleware.CORS())
	{
		healthHandler := NewHealthHandler(config.Service, config.JournalHealth)
		admin.GET("/health", healthHandler.Health)

		routeHandler := NewRouteHandler(config.Routes)
		admin.GET("/routes", routeHandler.ListRoutes)

		if config.Journal != nil {
			invocationHandler := NewInvocationHandler(config.Journal)
			admin.GET("/invocations", invocationHandler.ListInvocations)
			admin.GET("/invocations/:id", invocationHandler.GetInvocation)
		}

		if config.Gatherer != nil {
			admin.GET("/metrics", gin.WrapH(promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{})))
		}
	}
}
