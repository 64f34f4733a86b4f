package net

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/benruijl/walledin/internal/gameserver"
	"github.com/benruijl/walledin/internal/master"
	"github.com/benruijl/walledin/internal/telemetry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubDiagnostics struct {
	d gameserver.Diagnostics
}

func (s stubDiagnostics) Diagnostics() gameserver.Diagnostics {
	return s.d
}

type stubLister []master.Entry

func (s stubLister) Servers() []master.Entry {
	return s
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
	return resp
}

func TestHealth(t *testing.T) {
	h := NewGameServerHandler(stubDiagnostics{}, Observability{}, HTTPHandlerConfig{})
	resp := get(t, h, "/health")
	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("health = %d %q", resp.Code, resp.Body.String())
	}
}

func TestGameServerDiagnostics(t *testing.T) {
	counters := telemetry.NewCounters()
	counters.Add(telemetry.DatagramsOut, 7)
	src := stubDiagnostics{d: gameserver.Diagnostics{
		Tick:        42,
		Players:     1,
		MaxPlayers:  16,
		Connections: []gameserver.ConnectionInfo{{Addr: "127.0.0.1:5000", Entity: "alice", State: "alive"}},
	}}
	h := NewGameServerHandler(src, Observability{Metrics: counters}, HTTPHandlerConfig{TickRate: 30})

	resp := get(t, h, "/diagnostics")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	var payload struct {
		Status    string                 `json:"status"`
		TickRate  int                    `json:"tickRate"`
		Server    gameserver.Diagnostics `json:"server"`
		Telemetry map[string]uint64      `json:"telemetry"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != "ok" || payload.TickRate != 30 {
		t.Fatalf("payload = %+v", payload)
	}
	if payload.Server.Tick != 42 || len(payload.Server.Connections) != 1 {
		t.Fatalf("server diagnostics = %+v", payload.Server)
	}
	if payload.Telemetry[telemetry.DatagramsOut] != 7 {
		t.Fatalf("telemetry = %+v", payload.Telemetry)
	}
}

func TestMasterServers(t *testing.T) {
	src := stubLister{{Addr: netip.MustParseAddrPort("10.0.0.1:27015"), Name: "arena", Players: 2, MaxPlayers: 8, Mode: "dm"}}
	h := NewMasterHandler(src, nil, Observability{}, HTTPHandlerConfig{})

	resp := get(t, h, "/servers")
	var payload struct {
		Count   int            `json:"count"`
		Servers []master.Entry `json:"servers"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Count != 1 || payload.Servers[0].Name != "arena" {
		t.Fatalf("payload = %+v", payload)
	}

	if resp := get(t, h, "/ws"); resp.Code != http.StatusNotFound {
		t.Fatalf("/ws without a feed = %d, want 404", resp.Code)
	}
}

func TestMasterServersEmpty(t *testing.T) {
	h := NewMasterHandler(stubLister(nil), nil, Observability{}, HTTPHandlerConfig{})
	resp := get(t, h, "/servers")
	if body := resp.Body.String(); body != `{"count":0,"servers":[]}` {
		t.Fatalf("body = %s", body)
	}
}

func TestRateLimit(t *testing.T) {
	h := NewMasterHandler(stubLister(nil), nil, Observability{}, HTTPHandlerConfig{Limiter: rate.NewLimiter(rate.Limit(0.001), 1)})
	if resp := get(t, h, "/servers"); resp.Code != http.StatusOK {
		t.Fatalf("first request = %d", resp.Code)
	}
	if resp := get(t, h, "/servers"); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", resp.Code)
	}
}
