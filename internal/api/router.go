package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/finishline/internal/api/handlers"
	"github.com/your-org/finishline/internal/api/ws"
	"github.com/your-org/finishline/internal/auth"
	"github.com/your-org/finishline/internal/pipeline"
)

type RouterConfig struct {
	APIKey   string
	Progress *pipeline.Progress
	Hub      *ws.Hub
	// Results is nil when no database is configured.
	Results handlers.ResultReader
	// Checks are the optional backends reported by /readyz, keyed by name.
	Checks map[string]handlers.Pinger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Checks)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	if cfg.Hub != nil {
		v1.GET("/ws", cfg.Hub.HandleWS)
	}

	raceH := handlers.NewRaceHandler(cfg.Progress, cfg.Results)
	v1.GET("/race", raceH.Current)
	v1.GET("/results/:id", raceH.Result)

	return r
}
