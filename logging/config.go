package logging

import "time"

type Config struct {
	EnabledSinks     []string       `json:"enabledSinks,omitempty"`
	BufferSize       int            `json:"bufferSize,omitempty"`
	MinimumSeverity  Severity       `json:"minimumSeverity,omitempty"`
	Fields           map[string]any `json:"fields,omitempty"`
	JSON             JSONConfig     `json:"json"`
	DropWarnInterval time.Duration  `json:"dropWarnInterval,omitempty"`
}

type JSONConfig struct {
	FilePath      string        `json:"filePath,omitempty"`
	FlushInterval time.Duration `json:"flushInterval,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			FlushInterval: 2 * time.Second,
		},
	}
}

func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}
