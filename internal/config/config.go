// Package config assembles the settings of the three binaries from
// defaults, an optional .env file, an optional JSON file and WALLEDIN_*
// environment variables, in that order.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/benruijl/walledin/internal/client"
	"github.com/benruijl/walledin/internal/gameserver"
	"github.com/benruijl/walledin/internal/master"
	"github.com/benruijl/walledin/internal/telemetry"
	"github.com/benruijl/walledin/logging"
)

// FileEnv names the JSON config file.
const FileEnv = "WALLEDIN_CONFIG"

const (
	DefaultGamePort   = 7575
	DefaultMasterPort = 7576
)

type GameServer struct {
	// Addr is the UDP address for game traffic.
	Addr string `json:"addr"`
	// HTTPAddr serves /health and /diagnostics; empty disables it.
	HTTPAddr string                 `json:"httpAddr"`
	TickRate int                    `json:"tickRate"`
	Server   gameserver.Config      `json:"server"`
	Announce master.AnnouncerConfig `json:"announce"`
	Logging  logging.Config         `json:"logging"`
}

type Master struct {
	Addr     string        `json:"addr"`
	HTTPAddr string        `json:"httpAddr"`
	TickRate int           `json:"tickRate"`
	Master   master.Config `json:"master"`
	// HTTPRate caps requests per second across the HTTP surface.
	HTTPRate  float64        `json:"httpRate"`
	HTTPBurst int            `json:"httpBurst"`
	Logging   logging.Config `json:"logging"`
}

type Client struct {
	// Bind is the local UDP address; port 0 picks one.
	Bind  string        `json:"bind"`
	Agent client.Config `json:"agent"`
	// Master is queried by `client -list`.
	Master       string         `json:"master"`
	QueryTimeout time.Duration  `json:"queryTimeout"`
	Logging      logging.Config `json:"logging"`
}

func DefaultGameServer() GameServer {
	return GameServer{
		Addr:     fmt.Sprintf(":%d", DefaultGamePort),
		HTTPAddr: ":8080",
		TickRate: 30,
		Server:   gameserver.DefaultConfig(),
		Announce: master.AnnouncerConfig{
			Interval: master.DefaultAnnounceInterval,
			Name:     "walledin",
			Mode:     "deathmatch",
		},
		Logging: logging.DefaultConfig(),
	}
}

func DefaultMaster() Master {
	return Master{
		Addr:      fmt.Sprintf(":%d", DefaultMasterPort),
		HTTPAddr:  ":8081",
		TickRate:  10,
		Master:    master.DefaultConfig(),
		HTTPRate:  20,
		HTTPBurst: 40,
		Logging:   logging.DefaultConfig(),
	}
}

func DefaultClient() Client {
	return Client{
		Bind: "0.0.0.0:0",
		Agent: client.Config{
			Server:        fmt.Sprintf("127.0.0.1:%d", DefaultGamePort),
			Name:          "player",
			InputInterval: client.DefaultInputInterval,
			LoginRetry:    client.DefaultLoginRetry,
		},
		Master:       fmt.Sprintf("127.0.0.1:%d", DefaultMasterPort),
		QueryTimeout: 3 * time.Second,
		Logging:      logging.DefaultConfig(),
	}
}

// Loader reads configuration. The zero value reads ".env" and the process
// environment.
type Loader struct {
	EnvFile string
	Lookup  func(string) (string, bool)
	Logger  telemetry.Logger
}

func (l Loader) withDefaults() Loader {
	if l.EnvFile == "" {
		l.EnvFile = ".env"
	}
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}
	if l.Logger == nil {
		l.Logger = telemetry.LoggerFunc(nil)
	}
	return l
}

func (l Loader) GameServer() (GameServer, error) {
	cfg := DefaultGameServer()
	err := l.load(&cfg, func(e env) {
		e.str("WALLEDIN_ADDR", &cfg.Addr)
		e.str("WALLEDIN_HTTP_ADDR", &cfg.HTTPAddr)
		e.int("WALLEDIN_TICK_RATE", &cfg.TickRate)
		e.int("WALLEDIN_MAX_PLAYERS", &cfg.Server.MaxPlayers)
		e.float("WALLEDIN_LOGIN_RATE", &cfg.Server.LoginRate)
		e.int("WALLEDIN_DATAGRAM_BUDGET", &cfg.Server.Replication.DatagramBudget)
		e.duration("WALLEDIN_CHECK_INTERVAL", &cfg.Server.Liveness.CheckInterval)
		e.duration("WALLEDIN_WAIT_TIMEOUT", &cfg.Server.Liveness.WaitTimeout)
		e.str("WALLEDIN_SEED", &cfg.Server.World.Seed)
		e.str("WALLEDIN_MASTER", &cfg.Announce.Master)
		e.str("WALLEDIN_SERVER_NAME", &cfg.Announce.Name)
		e.str("WALLEDIN_MODE", &cfg.Announce.Mode)
		e.duration("WALLEDIN_ANNOUNCE_INTERVAL", &cfg.Announce.Interval)
		e.logging(&cfg.Logging)
	})
	return cfg, err
}

func (l Loader) Master() (Master, error) {
	cfg := DefaultMaster()
	err := l.load(&cfg, func(e env) {
		e.str("WALLEDIN_ADDR", &cfg.Addr)
		e.str("WALLEDIN_HTTP_ADDR", &cfg.HTTPAddr)
		e.int("WALLEDIN_TICK_RATE", &cfg.TickRate)
		e.duration("WALLEDIN_REGISTRY_TIMEOUT", &cfg.Master.Timeout)
		e.duration("WALLEDIN_CHALLENGE_INTERVAL", &cfg.Master.ChallengeInterval)
		e.int("WALLEDIN_REGISTRY_CAPACITY", &cfg.Master.Capacity)
		e.float("WALLEDIN_QUERY_RATE", &cfg.Master.QueryRate)
		e.float("WALLEDIN_HTTP_RATE", &cfg.HTTPRate)
		e.logging(&cfg.Logging)
	})
	return cfg, err
}

func (l Loader) Client() (Client, error) {
	cfg := DefaultClient()
	err := l.load(&cfg, func(e env) {
		e.str("WALLEDIN_BIND", &cfg.Bind)
		e.str("WALLEDIN_SERVER", &cfg.Agent.Server)
		e.str("WALLEDIN_NAME", &cfg.Agent.Name)
		e.duration("WALLEDIN_INPUT_INTERVAL", &cfg.Agent.InputInterval)
		e.str("WALLEDIN_MASTER", &cfg.Master)
		e.duration("WALLEDIN_QUERY_TIMEOUT", &cfg.QueryTimeout)
		e.logging(&cfg.Logging)
	})
	return cfg, err
}

// load applies the .env file, the JSON file and then the overrides. A
// missing .env is fine; a named JSON file that cannot be read is not.
func (l Loader) load(dst any, overrides func(env)) error {
	l = l.withDefaults()
	if err := godotenv.Load(l.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: load %s: %w", l.EnvFile, err)
	}
	if path, ok := l.Lookup(FileEnv); ok && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := json.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	overrides(env{lookup: l.Lookup, logger: l.Logger})
	return nil
}
