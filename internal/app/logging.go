// Package app wires configuration, sockets, loops and HTTP surfaces into
// the three runnable processes.
package app

import (
	"fmt"
	"log"
	"os"

	"github.com/benruijl/walledin/logging"
	loggingSinks "github.com/benruijl/walledin/logging/sinks"
)

// newRouter builds the structured event router with the sinks the config
// enables. The JSON sink writes to the configured file or, without one, to
// stdout.
func newRouter(cfg logging.Config, fallback *log.Logger, prefix string) (*logging.Router, error) {
	sinks := map[string]logging.Sink{
		"console": loggingSinks.NewConsole(os.Stdout, prefix),
	}
	if cfg.HasSink("json") {
		if path := cfg.JSON.FilePath; path != "" {
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open json log %s: %w", path, err)
			}
			sinks["json"] = loggingSinks.NewJSON(file, cfg.JSON.FlushInterval)
		} else {
			sinks["json"] = loggingSinks.NewJSON(os.Stdout, cfg.JSON.FlushInterval)
		}
	}
	router, err := logging.NewRouter(cfg, logging.SystemClock{}, fallback, sinks)
	if err != nil {
		return nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	return router, nil
}
