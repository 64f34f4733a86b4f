package sim

import (
	"github.com/benruijl/walledin/internal/telemetry"
	"github.com/benruijl/walledin/logging"
)

// Deps carries shared infrastructure the loop reports through.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Clock     logging.Clock
	Publisher logging.Publisher
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = telemetry.LoggerFunc(nil)
	}
	if d.Metrics == nil {
		d.Metrics = telemetry.NopMetrics()
	}
	if d.Clock == nil {
		d.Clock = logging.SystemClock{}
	}
	if d.Publisher == nil {
		d.Publisher = logging.NopPublisher()
	}
	return d
}
