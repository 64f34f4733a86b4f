package world

import "strings"

const (
	DefaultSeed        = "walledin"
	DefaultWidth       = 1024.0
	DefaultHeight      = 768.0
	DefaultPlayerSize  = 28.0
	DefaultPlayerSpeed = 160.0
	DefaultHealth      = 100.0
)

type Config struct {
	Seed        string  `json:"seed"`
	Width       float32 `json:"width"`
	Height      float32 `json:"height"`
	PlayerSize  float32 `json:"playerSize"`
	PlayerSpeed float32 `json:"playerSpeed"`
}

func (cfg Config) Normalized() Config {
	normalized := cfg
	normalized.Seed = strings.TrimSpace(normalized.Seed)
	if normalized.Seed == "" {
		normalized.Seed = DefaultSeed
	}
	if normalized.Width <= 0 {
		normalized.Width = DefaultWidth
	}
	if normalized.Height <= 0 {
		normalized.Height = DefaultHeight
	}
	if normalized.PlayerSize <= 0 {
		normalized.PlayerSize = DefaultPlayerSize
	}
	if normalized.PlayerSpeed <= 0 {
		normalized.PlayerSpeed = DefaultPlayerSpeed
	}
	return normalized
}

func DefaultConfig() Config {
	return Config{
		Seed:        DefaultSeed,
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		PlayerSize:  DefaultPlayerSize,
		PlayerSpeed: DefaultPlayerSpeed,
	}
}
