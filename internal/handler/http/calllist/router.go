package calllist

import (
	"github.com/gin-gonic/gin"

	"memento-client/internal/middleware"
	"memento-client/pkg/metrics"
)

// ServiceName identifies the stub in health checks and metrics
const ServiceName = "memento-stub"

// NewRouter builds the stub server: health and metrics endpoints in the open,
// call lists behind Basic auth. m may be nil to serve without metrics.
func NewRouter(h *Handler, creds middleware.Credentials, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.HealthCheck(ServiceName),
		middleware.Recovery(),
		middleware.RequestLogger(),
		middleware.SecurityHeaders(),
	)
	if m != nil {
		router.Use(middleware.NewPrometheusMiddleware(m).Handler())
		router.GET(middleware.MetricsPath, middleware.MetricsHandler(m))
	}

	lists := router.Group("/")
	lists.Use(middleware.BasicAuth(creds, m))
	h.RegisterRoutes(lists)
	return router
}
