package monitorhttp

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"callmonitor_sdk/internal/callmonitor/domain"
	"callmonitor_sdk/platform/config"
	"callmonitor_sdk/platform/logger"
)

// Views is the read-only slice of the monitor the HTTP surface exposes.
type Views interface {
	Ready() bool
	Calls() []domain.MatchedCall
	ActiveRingCalls() []domain.MatchedCall
	ActiveOnHoldCalls() []domain.MatchedCall
	ActiveCurrentCalls() []domain.MatchedCall
	OtherDeviceCalls() []domain.MatchedCall
	HasRingingCalls() bool
}

// NewRouter builds the gin engine with CORS, request logging and the
// observer routes.
func NewRouter(cfg config.HTTPConfig, log *logger.Logger, views Views, stream *Stream) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(log))
	engine.Use(cors.New(corsConfig(cfg)))

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"ready":  views.Ready(),
		})
	})

	v1 := engine.Group("/api/v1")
	v1.GET("/calls", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":            views.Ready(),
			"calls":            views.Calls(),
			"activeRingCalls":  views.ActiveRingCalls(),
			"onHoldCalls":      views.ActiveOnHoldCalls(),
			"currentCalls":     views.ActiveCurrentCalls(),
			"otherDeviceCalls": views.OtherDeviceCalls(),
			"hasRingingCalls":  views.HasRingingCalls(),
		})
	})
	if stream != nil {
		v1.GET("/calls/stream", stream.Handler())
	}

	return engine
}

func corsConfig(cfg config.HTTPConfig) cors.Config {
	c := cors.DefaultConfig()
	if cfg.GetCORSAllowAll() {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.GetCORSOrigins()
	}
	c.AllowMethods = []string{http.MethodGet, http.MethodOptions}
	return c
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.HTTPRequest(
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			float64(time.Since(start).Microseconds())/1000.0,
			c.ClientIP(),
		)
	}
}
