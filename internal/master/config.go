package master

import "time"

const (
	DefaultTimeout           = 2 * time.Second
	DefaultChallengeInterval = time.Second
	DefaultCapacity          = 256
	DefaultQueryRate         = 4.0
	DefaultQueryBurst        = 8
	// DefaultMaxReply is the largest UDP payload over IPv4.
	DefaultMaxReply = 65507
	DefaultMaxDrain = 4096
)

type Config struct {
	// Timeout evicts an entry whose last verified contact is older.
	Timeout           time.Duration `json:"timeout"`
	ChallengeInterval time.Duration `json:"challengeInterval"`
	Capacity          int           `json:"capacity"`
	// QueryRate and QueryBurst bound the datagrams accepted per source IP.
	QueryRate  float64 `json:"queryRate"`
	QueryBurst int     `json:"queryBurst"`
	MaxReply   int     `json:"maxReply"`
	MaxDrain   int     `json:"maxDrain"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:           DefaultTimeout,
		ChallengeInterval: DefaultChallengeInterval,
		Capacity:          DefaultCapacity,
		QueryRate:         DefaultQueryRate,
		QueryBurst:        DefaultQueryBurst,
		MaxReply:          DefaultMaxReply,
		MaxDrain:          DefaultMaxDrain,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.ChallengeInterval <= 0 {
		c.ChallengeInterval = d.ChallengeInterval
	}
	if c.Capacity <= 0 {
		c.Capacity = d.Capacity
	}
	if c.QueryRate <= 0 {
		c.QueryRate = d.QueryRate
	}
	if c.QueryBurst <= 0 {
		c.QueryBurst = d.QueryBurst
	}
	if c.MaxReply <= 0 {
		c.MaxReply = d.MaxReply
	}
	if c.MaxDrain <= 0 {
		c.MaxDrain = d.MaxDrain
	}
	return c
}
