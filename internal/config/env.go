package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/benruijl/walledin/internal/telemetry"
	"github.com/benruijl/walledin/logging"
)

// env applies WALLEDIN_* overrides. An unparsable value is reported and the
// current value is kept.
type env struct {
	lookup func(string) (string, bool)
	logger telemetry.Logger
}

func (e env) raw(key string) (string, bool) {
	raw, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func (e env) invalid(key, raw string, err error) {
	e.logger.Printf("invalid %s=%q: %v", key, raw, err)
}

func (e env) str(key string, dst *string) {
	if raw, ok := e.raw(key); ok {
		*dst = raw
	}
}

func (e env) int(key string, dst *int) {
	raw, ok := e.raw(key)
	if !ok {
		return
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		e.invalid(key, raw, err)
		return
	}
	*dst = value
}

func (e env) float(key string, dst *float64) {
	raw, ok := e.raw(key)
	if !ok {
		return
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.invalid(key, raw, err)
		return
	}
	*dst = value
}

func (e env) duration(key string, dst *time.Duration) {
	raw, ok := e.raw(key)
	if !ok {
		return
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		e.invalid(key, raw, err)
		return
	}
	*dst = value
}

func (e env) logging(dst *logging.Config) {
	if raw, ok := e.raw("WALLEDIN_LOG_SINKS"); ok {
		var sinks []string
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				sinks = append(sinks, name)
			}
		}
		dst.EnabledSinks = sinks
	}
	if raw, ok := e.raw("WALLEDIN_LOG_LEVEL"); ok {
		severity, err := logging.ParseSeverity(raw)
		if err != nil {
			e.invalid("WALLEDIN_LOG_LEVEL", raw, err)
		} else {
			dst.MinimumSeverity = severity
		}
	}
	e.str("WALLEDIN_LOG_FILE", &dst.JSON.FilePath)
}
