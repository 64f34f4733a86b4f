package app

import (
	"context"
	"fmt"
	"log"
	"net/netip"

	"github.com/benruijl/walledin/internal/client"
	"github.com/benruijl/walledin/internal/config"
	"github.com/benruijl/walledin/internal/master"
	"github.com/benruijl/walledin/internal/net/proto"
	"github.com/benruijl/walledin/internal/telemetry"
	"github.com/benruijl/walledin/internal/transport"
	"github.com/benruijl/walledin/logging"
)

// RunClient connects to the configured game server and plays until ctx ends.
func RunClient(ctx context.Context, cfg config.Client, input client.InputSource, renderer client.Renderer, fallback *log.Logger) error {
	if fallback == nil {
		fallback = log.Default()
	}
	logger := telemetry.WrapLogger(fallback)
	metrics := telemetry.NewCounters()

	router, err := newRouter(cfg.Logging, fallback, "[client] ")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	conn, err := transport.ListenUDP(transport.UDPConfig{Addr: cfg.Bind}, logger, metrics)
	if err != nil {
		return err
	}
	defer conn.Close()

	agent, err := client.NewAgent(cfg.Agent, conn, input, renderer, client.Deps{
		Logger:    logger,
		Metrics:   metrics,
		Publisher: logging.WithFields(router, map[string]any{"service": "client"}),
	})
	if err != nil {
		return err
	}
	logger.Printf("joining %s as %q", cfg.Agent.Server, cfg.Agent.Name)
	return agent.Run(ctx)
}

// ListServers asks the configured master for its registry.
func ListServers(ctx context.Context, cfg config.Client, fallback *log.Logger) ([]proto.ServerInfo, error) {
	if fallback == nil {
		fallback = log.Default()
	}
	addr, err := netip.ParseAddrPort(cfg.Master)
	if err != nil {
		return nil, fmt.Errorf("master address %q: %w", cfg.Master, err)
	}
	conn, err := transport.ListenUDP(transport.UDPConfig{Addr: cfg.Bind}, telemetry.WrapLogger(fallback), nil)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.QueryTimeout)
		defer cancel()
	}
	return master.Query(ctx, conn, addr, master.DefaultQueryRetry)
}
