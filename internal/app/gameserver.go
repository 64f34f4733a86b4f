package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/benruijl/walledin/internal/config"
	"github.com/benruijl/walledin/internal/gameserver"
	"github.com/benruijl/walledin/internal/master"
	servernet "github.com/benruijl/walledin/internal/net"
	"github.com/benruijl/walledin/internal/sim"
	"github.com/benruijl/walledin/internal/telemetry"
	"github.com/benruijl/walledin/internal/transport"
	"github.com/benruijl/walledin/logging"
)

// RunGameServer serves the game protocol until ctx ends.
func RunGameServer(ctx context.Context, cfg config.GameServer, fallback *log.Logger) error {
	if fallback == nil {
		fallback = log.Default()
	}
	logger := telemetry.WrapLogger(fallback)
	metrics := telemetry.NewCounters()

	router, err := newRouter(cfg.Logging, fallback, "[game] ")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()
	publisher := logging.WithFields(router, map[string]any{"service": "gameserver"})

	conn, err := transport.ListenUDP(transport.UDPConfig{Addr: cfg.Addr}, logger, metrics)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Printf("game server listening on udp %s", conn.LocalAddr())

	var opts []gameserver.Option
	if cfg.Announce.Master != "" {
		announcer, err := master.NewAnnouncer(cfg.Announce, conn, master.Deps{
			Logger:    logger,
			Metrics:   metrics,
			Publisher: publisher,
		})
		if err != nil {
			return err
		}
		opts = append(opts, gameserver.WithAnnouncer(announcer))
		logger.Printf("announcing %q to master %s", cfg.Announce.Name, cfg.Announce.Master)
	}

	srv := gameserver.New(cfg.Server, conn, gameserver.Deps{
		Logger:    logger,
		Metrics:   metrics,
		Publisher: publisher,
	}, opts...)

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
		handler := servernet.NewGameServerHandler(srv, servernet.Observability{Metrics: metrics, Logs: router}, servernet.HTTPHandlerConfig{
			Logger:   fallback,
			TickRate: cfg.TickRate,
		})
		g.Go(func() error {
			return serveHTTP(gctx, &http.Server{Addr: cfg.HTTPAddr, Handler: handler}, logger)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("game server: %w", err)
	}
	return nil
}
