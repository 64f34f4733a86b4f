// Package net holds the HTTP surfaces of the game and master servers. The
// game protocols themselves live in proto and run over UDP.
package net

import (
	"log"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/benruijl/walledin/internal/gameserver"
	"github.com/benruijl/walledin/internal/master"
	"github.com/benruijl/walledin/logging"
)

type HTTPHandlerConfig struct {
	Logger *log.Logger
	// Limiter, when set, caps the request rate across the whole surface.
	Limiter *rate.Limiter
	// TickRate is reported by /diagnostics.
	TickRate int
}

// DiagnosticsSource is satisfied by *gameserver.Server.
type DiagnosticsSource interface {
	Diagnostics() gameserver.Diagnostics
}

// ServerLister is satisfied by *master.Server.
type ServerLister interface {
	Servers() []master.Entry
}

// MetricsSource is satisfied by *telemetry.Counters.
type MetricsSource interface {
	Snapshot() map[string]uint64
}

// LogStats is satisfied by *logging.Router.
type LogStats interface {
	Stats() logging.RouterStats
}

// Observability bundles the optional process-wide readouts.
type Observability struct {
	Metrics MetricsSource
	Logs    LogStats
}

func (o Observability) metrics() map[string]uint64 {
	if o.Metrics == nil {
		return map[string]uint64{}
	}
	return o.Metrics.Snapshot()
}

func (o Observability) logs() *logging.RouterStats {
	if o.Logs == nil {
		return nil
	}
	stats := o.Logs.Stats()
	return &stats
}

func newEngine(cfg HTTPHandlerConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    logger.Writer(),
		SkipPaths: []string{"/health"},
	}))
	if cfg.Limiter != nil {
		r.Use(func(c *gin.Context) {
			if !cfg.Limiter.Allow() {
				c.AbortWithStatusJSON(nethttp.StatusTooManyRequests, gin.H{"error": "rate limited"})
				return
			}
			c.Next()
		})
	}
	r.GET("/health", func(c *gin.Context) {
		c.String(nethttp.StatusOK, "ok")
	})
	return r
}

// NewGameServerHandler serves /health and /diagnostics for a game server.
func NewGameServerHandler(src DiagnosticsSource, obs Observability, cfg HTTPHandlerConfig) *gin.Engine {
	r := newEngine(cfg)
	r.GET("/diagnostics", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{
			"status":     "ok",
			"serverTime": time.Now().UnixMilli(),
			"tickRate":   cfg.TickRate,
			"server":     src.Diagnostics(),
			"telemetry":  obs.metrics(),
			"logging":    obs.logs(),
		})
	})
	return r
}

// NewMasterHandler serves /health, /servers and, when feed is non-nil, the
// /ws live registry feed.
func NewMasterHandler(src ServerLister, feed nethttp.Handler, obs Observability, cfg HTTPHandlerConfig) *gin.Engine {
	r := newEngine(cfg)
	r.GET("/servers", func(c *gin.Context) {
		servers := src.Servers()
		if servers == nil {
			servers = []master.Entry{}
		}
		c.JSON(nethttp.StatusOK, gin.H{
			"count":   len(servers),
			"servers": servers,
		})
	})
	r.GET("/diagnostics", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{
			"status":     "ok",
			"serverTime": time.Now().UnixMilli(),
			"servers":    len(src.Servers()),
			"telemetry":  obs.metrics(),
			"logging":    obs.logs(),
		})
	})
	if feed != nil {
		r.GET("/ws", gin.WrapH(feed))
	}
	return r
}
