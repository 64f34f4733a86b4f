package logging

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

// ErrNoSinks is returned when none of the enabled sinks were supplied.
var ErrNoSinks = errors.New("logging: no enabled sinks")

// Router accepts events from the tick goroutine without blocking and fans
// them out to one worker goroutine per sink. Events are dropped, not
// queued, when a buffer is full.
type Router struct {
	cfg         Config
	queue       chan Event
	workers     []*sinkWorker
	clock       Clock
	fallback    *log.Logger
	minSeverity Severity
	fields      map[string]any

	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup

	eventsTotal  atomic.Uint64
	droppedTotal atomic.Uint64
	nextDropLog  atomic.Int64
}

type RouterStats struct {
	EventsTotal  uint64 `json:"eventsTotal"`
	DroppedTotal uint64 `json:"droppedTotal"`
}

// NewRouter wires the sinks named in cfg.EnabledSinks. Sinks present in the
// map but not enabled are ignored.
func NewRouter(cfg Config, clock Clock, fallback *log.Logger, sinks map[string]Sink) (*Router, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	if fallback == nil {
		fallback = log.Default()
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 512
	}
	r := &Router{
		cfg:         cfg,
		queue:       make(chan Event, bufferSize),
		clock:       clock,
		fallback:    fallback,
		minSeverity: cfg.MinimumSeverity,
		fields:      copyExtra(cfg.Fields),
		done:        make(chan struct{}),
	}

	names := make([]string, 0, len(sinks))
	for name := range sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !cfg.HasSink(name) || sinks[name] == nil {
			continue
		}
		r.workers = append(r.workers, newSinkWorker(name, sinks[name], min(max(bufferSize, 32), 1024), fallback))
	}
	if len(cfg.EnabledSinks) > 0 && len(r.workers) == 0 {
		return nil, ErrNoSinks
	}

	r.wg.Add(1 + len(r.workers))
	go r.dispatch()
	for _, w := range r.workers {
		go func(w *sinkWorker) {
			defer r.wg.Done()
			w.run()
		}(w)
	}
	return r, nil
}

func (r *Router) dispatch() {
	defer r.wg.Done()
	defer func() {
		for _, w := range r.workers {
			close(w.events)
		}
	}()
	for {
		select {
		case event := <-r.queue:
			r.forward(event)
		case <-r.done:
			for {
				select {
				case event := <-r.queue:
					r.forward(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) forward(event Event) {
	if event.Severity < r.minSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = withDefaults(event, r.fields)
	r.eventsTotal.Add(1)
	for _, w := range r.workers {
		w.enqueue(event.Clone())
	}
}

// Publish implements Publisher. It never blocks.
func (r *Router) Publish(_ context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.noteDrop(event)
	}
}

func (r *Router) noteDrop(event Event) {
	r.droppedTotal.Add(1)
	interval := r.cfg.DropWarnInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := time.Now().UnixNano()
	next := r.nextDropLog.Load()
	if now >= next && r.nextDropLog.CompareAndSwap(next, now+interval.Nanoseconds()) {
		r.fallback.Printf("[logging] queue full, dropping event type=%s tick=%d (dropped=%d)", event.Type, event.Tick, r.droppedTotal.Load())
	}
}

// Close stops accepting events, flushes what is queued and closes every sink.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.done)
	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return ctx.Err()
	}
	var errs []error
	for _, w := range r.workers {
		if err := w.sink.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Router) Stats() RouterStats {
	return RouterStats{
		EventsTotal:  r.eventsTotal.Load(),
		DroppedTotal: r.droppedTotal.Load(),
	}
}

// Sink returns the enabled sink registered under name.
func (r *Router) Sink(name string) Sink {
	for _, w := range r.workers {
		if w.name == name {
			return w.sink
		}
	}
	return nil
}

type sinkWorker struct {
	name      string
	sink      Sink
	events    chan Event
	fallback  *log.Logger
	failures  int
	nextRetry time.Time
}

func newSinkWorker(name string, sink Sink, buffer int, fallback *log.Logger) *sinkWorker {
	return &sinkWorker{
		name:     name,
		sink:     sink,
		events:   make(chan Event, buffer),
		fallback: fallback,
	}
}

func (w *sinkWorker) enqueue(event Event) {
	select {
	case w.events <- event:
	default:
		w.fallback.Printf("[logging] sink %s backlog full, dropping event type=%s", w.name, event.Type)
	}
}

func (w *sinkWorker) run() {
	for event := range w.events {
		if w.failures > 0 {
			if wait := time.Until(w.nextRetry); wait > 0 {
				time.Sleep(wait)
			}
		}
		if err := w.sink.Write(event); err != nil {
			w.failures++
			delay := time.Duration(1<<min(w.failures, 5)) * time.Second
			w.nextRetry = time.Now().Add(delay)
			w.fallback.Printf("[logging] sink %s failed: %v (retry in %s)", w.name, err, delay)
			continue
		}
		w.failures = 0
	}
}
