package simulation

import (
	"context"

	"github.com/benruijl/walledin/logging"
)

const (
	// EventTickBudgetOverrun is emitted when a tick takes longer than its interval.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventTickFailed is emitted when a tick returns an error.
	EventTickFailed logging.EventType = "simulation.tick_failed"
)

type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
}

type TickFailedPayload struct {
	Error string `json:"error"`
}

// TickBudgetOverrun publishes a warning when the loop exceeds its tick budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

func TickFailed(ctx context.Context, pub logging.Publisher, tick uint64, payload TickFailedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickFailed,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityError,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}
