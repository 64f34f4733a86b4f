package sim

import (
	"context"
	"time"

	"github.com/benruijl/walledin/internal/telemetry"
	"github.com/benruijl/walledin/logging/simulation"
)

const (
	tickDurationMetricKey = "sim_tick_duration_us"
	tickCountMetricKey    = "sim_ticks_total"
)

// Ticker is advanced once per fixed-rate tick with the measured delta.
type Ticker interface {
	Tick(ctx context.Context, now time.Time, dt time.Duration) error
}

// TickerFunc adapts a function into a Ticker.
type TickerFunc func(ctx context.Context, now time.Time, dt time.Duration) error

func (f TickerFunc) Tick(ctx context.Context, now time.Time, dt time.Duration) error {
	return f(ctx, now, dt)
}

// LoopConfig tunes the fixed-timestep runner.
type LoopConfig struct {
	TickRate int `json:"tickRate"`
	// MaxDelta caps the delta handed to the ticker after a stall. Zero
	// means four tick intervals.
	MaxDelta time.Duration `json:"maxDelta"`
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{TickRate: 30}
}

// StepResult describes one completed tick.
type StepResult struct {
	Tick         uint64
	Now          time.Time
	Delta        time.Duration
	ClampedDelta bool
	Duration     time.Duration
	Budget       time.Duration
	Overrun      bool
	Err          error
}

type LoopHooks struct {
	AfterStep func(StepResult)
}

// Loop drives a Ticker at a fixed rate. time.Ticker absorbs the sleep for
// the remainder of each tick budget.
type Loop struct {
	ticker   Ticker
	config   LoopConfig
	hooks    LoopHooks
	deps     Deps
	interval time.Duration
	maxDelta time.Duration

	tick          uint64
	last          time.Time
	overrunStreak uint64
}

func NewLoop(ticker Ticker, cfg LoopConfig, deps Deps, hooks LoopHooks) *Loop {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultLoopConfig().TickRate
	}
	interval := time.Second / time.Duration(cfg.TickRate)
	maxDelta := cfg.MaxDelta
	if maxDelta <= 0 {
		maxDelta = 4 * interval
	}
	return &Loop{
		ticker:   ticker,
		config:   cfg,
		hooks:    hooks,
		deps:     deps.withDefaults(),
		interval: interval,
		maxDelta: maxDelta,
	}
}

// Interval is the tick budget.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Ticks reports how many ticks have run.
func (l *Loop) Ticks() uint64 {
	return l.tick
}

// Step runs one tick at now. The first step uses one interval as its delta.
func (l *Loop) Step(ctx context.Context, now time.Time) StepResult {
	dt := l.interval
	clamped := false
	if !l.last.IsZero() {
		dt = now.Sub(l.last)
		if dt <= 0 {
			dt = l.interval
		} else if dt > l.maxDelta {
			dt = l.maxDelta
			clamped = true
		}
	}
	l.last = now
	l.tick++

	clock := l.deps.Clock
	start := clock.Now()
	err := l.ticker.Tick(ctx, now, dt)
	result := StepResult{
		Tick:         l.tick,
		Now:          now,
		Delta:        dt,
		ClampedDelta: clamped,
		Duration:     clock.Now().Sub(start),
		Budget:       l.interval,
		Err:          err,
	}
	l.record(ctx, &result)
	if l.hooks.AfterStep != nil {
		l.hooks.AfterStep(result)
	}
	return result
}

func (l *Loop) record(ctx context.Context, result *StepResult) {
	metrics := l.deps.Metrics
	metrics.Add(tickCountMetricKey, 1)
	metrics.Store(tickDurationMetricKey, uint64(result.Duration.Microseconds()))

	if result.Err != nil {
		l.deps.Logger.Printf("[sim] tick %d failed: %v", result.Tick, result.Err)
		simulation.TickFailed(ctx, l.deps.Publisher, result.Tick, simulation.TickFailedPayload{Error: result.Err.Error()})
	}

	if result.Duration <= result.Budget {
		l.overrunStreak = 0
		return
	}
	result.Overrun = true
	l.overrunStreak++
	metrics.Add(telemetry.TickOverruns, 1)
	simulation.TickBudgetOverrun(ctx, l.deps.Publisher, result.Tick, simulation.TickBudgetOverrunPayload{
		DurationMillis: result.Duration.Milliseconds(),
		BudgetMillis:   result.Budget.Milliseconds(),
		Ratio:          float64(result.Duration) / float64(result.Budget),
		Streak:         l.overrunStreak,
	})
}

// Run ticks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Step(ctx, l.deps.Clock.Now())
		}
	}
}
