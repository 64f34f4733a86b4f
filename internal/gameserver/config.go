package gameserver

import (
	"github.com/benruijl/walledin/internal/liveness"
	"github.com/benruijl/walledin/internal/replication"
	"github.com/benruijl/walledin/internal/world"
)

const (
	DefaultMaxPlayers = 16
	DefaultMaxDrain   = 4096
	DefaultLoginRate  = 5.0
	DefaultLoginBurst = 10
)

type Config struct {
	MaxPlayers int `json:"maxPlayers"`
	// MaxDrain bounds how many inbound datagrams one tick processes.
	MaxDrain    int                `json:"maxDrain"`
	LoginRate   float64            `json:"loginRate"`
	LoginBurst  int                `json:"loginBurst"`
	Liveness    liveness.Config    `json:"liveness"`
	Replication replication.Config `json:"replication"`
	World       world.Config       `json:"world"`
}

func DefaultConfig() Config {
	return Config{
		MaxPlayers:  DefaultMaxPlayers,
		MaxDrain:    DefaultMaxDrain,
		LoginRate:   DefaultLoginRate,
		LoginBurst:  DefaultLoginBurst,
		Liveness:    liveness.DefaultConfig(),
		Replication: replication.Config{DatagramBudget: replication.DefaultDatagramBudget},
		World:       world.DefaultConfig(),
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = d.MaxPlayers
	}
	if c.MaxDrain <= 0 {
		c.MaxDrain = d.MaxDrain
	}
	if c.LoginRate <= 0 {
		c.LoginRate = d.LoginRate
	}
	if c.LoginBurst <= 0 {
		c.LoginBurst = d.LoginBurst
	}
	if c.Liveness.CheckInterval <= 0 {
		c.Liveness.CheckInterval = d.Liveness.CheckInterval
	}
	if c.Liveness.WaitTimeout <= 0 {
		c.Liveness.WaitTimeout = d.Liveness.WaitTimeout
	}
	return c
}
