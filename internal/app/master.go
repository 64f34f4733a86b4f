package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/benruijl/walledin/internal/config"
	"github.com/benruijl/walledin/internal/master"
	servernet "github.com/benruijl/walledin/internal/net"
	"github.com/benruijl/walledin/internal/net/ws"
	"github.com/benruijl/walledin/internal/sim"
	"github.com/benruijl/walledin/internal/telemetry"
	"github.com/benruijl/walledin/internal/transport"
	"github.com/benruijl/walledin/logging"
)

// RunMaster serves the discovery protocol until ctx ends.
func RunMaster(ctx context.Context, cfg config.Master, fallback *log.Logger) error {
	if fallback == nil {
		fallback = log.Default()
	}
	logger := telemetry.WrapLogger(fallback)
	metrics := telemetry.NewCounters()

	router, err := newRouter(cfg.Logging, fallback, "[master] ")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()
	publisher := logging.WithFields(router, map[string]any{"service": "master"})

	conn, err := transport.ListenUDP(transport.UDPConfig{Addr: cfg.Addr}, logger, metrics)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Printf("master server listening on udp %s", conn.LocalAddr())

	feed := ws.NewFeed(ws.FeedConfig{Logger: fallback})
	defer feed.Close()

	srv := master.NewServer(cfg.Master, conn, master.Deps{
		Logger:    logger,
		Metrics:   metrics,
		Publisher: publisher,
	}, master.WithFeed(feed))

	loop := sim.NewLoop(srv, sim.LoopConfig{TickRate: cfg.TickRate}, sim.Deps{
		Logger:    logger,
		Metrics:   metrics,
		Publisher: publisher,
	}, sim.LoopHooks{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	if cfg.HTTPAddr != "" {
		var limiter *rate.Limiter
		if cfg.HTTPRate > 0 {
			limiter = rate.NewLimiter(rate.Limit(cfg.HTTPRate), max(cfg.HTTPBurst, 1))
		}
		handler := servernet.NewMasterHandler(srv, feed, servernet.Observability{Metrics: metrics, Logs: router}, servernet.HTTPHandlerConfig{
			Logger:  fallback,
			Limiter: limiter,
		})
		g.Go(func() error {
			return serveHTTP(gctx, &http.Server{Addr: cfg.HTTPAddr, Handler: handler}, logger)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("master server: %w", err)
	}
	return nil
}
