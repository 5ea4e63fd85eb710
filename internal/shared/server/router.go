package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillgap-backend/internal/analyses"
	"skillgap-backend/internal/shared/config"
	"skillgap-backend/internal/shared/metrics"
	"skillgap-backend/internal/shared/server/middleware"
	"skillgap-backend/internal/shared/server/respond"
)

// RouterDeps carries everything route registration needs.
type RouterDeps struct {
	Config          config.Config
	AnalysisHandler *analyses.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Session(deps.Config.Env),
	)

	r.GET("/healthz", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	// Submissions cost a model call downstream, so they are throttled per
	// session. Polling and history stay unthrottled.
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rule: middleware.RateLimitRule{Rate: 10.0 / 60.0, Burst: 5},
	}))

	if deps.AnalysisHandler != nil {
		api.POST("/analyses", deps.AnalysisHandler.Submit)
		api.GET("/analyses", deps.AnalysisHandler.History)
		api.GET("/analyses/:id", deps.AnalysisHandler.Get)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
