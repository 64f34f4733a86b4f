package master

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/benruijl/walledin/internal/net/proto"
	"github.com/benruijl/walledin/internal/transport"
)

// ErrNoReply is returned by Query when the master never answered.
var ErrNoReply = errors.New("master: no reply")

const DefaultQueryRetry = 500 * time.Millisecond

// Query asks the master at addr for its server list, resending GET_SERVERS
// every retry until a SERVERS reply arrives or ctx ends. Other datagrams
// read from conn are discarded.
func Query(ctx context.Context, conn transport.Conn, addr netip.AddrPort, retry time.Duration) ([]proto.ServerInfo, error) {
	if retry <= 0 {
		retry = DefaultQueryRetry
	}
	request := proto.EncodeMaster(proto.GetServers{})
	ticker := time.NewTicker(retry)
	defer ticker.Stop()

	if err := conn.Send(addr, request); err != nil {
		return nil, fmt.Errorf("master: query %s: %w", addr, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w from %s: %w", ErrNoReply, addr, ctx.Err())
		case <-ticker.C:
			if err := conn.Send(addr, request); err != nil {
				return nil, fmt.Errorf("master: query %s: %w", addr, err)
			}
		case p, ok := <-conn.Packets():
			if !ok {
				return nil, transport.ErrClosed
			}
			if p.Addr != addr {
				continue
			}
			msg, err := proto.DecodeMaster(p.Data)
			if err != nil {
				continue
			}
			if servers, ok := msg.(proto.Servers); ok {
				return servers.Servers, nil
			}
		}
	}
}
