package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/benruijl/walledin/logging"
)

// JSON emits newline-delimited structured events.
type JSON struct {
	mu        sync.Mutex
	writer    *bufio.Writer
	closer    io.Closer
	encoder   *json.Encoder
	autoFlush bool
	stop      chan struct{}
	stopOnce  sync.Once
}

type jsonEvent struct {
	Type     logging.EventType   `json:"type"`
	Tick     uint64              `json:"tick"`
	Time     string              `json:"time"`
	Severity string              `json:"severity"`
	Category string              `json:"category,omitempty"`
	Actor    logging.EntityRef   `json:"actor"`
	Targets  []logging.EntityRef `json:"targets,omitempty"`
	Payload  any                 `json:"payload,omitempty"`
	Extra    map[string]any      `json:"extra,omitempty"`
}

// NewJSON writes to w. With a positive flushInterval the buffer is flushed
// on a timer, otherwise after every event. If w is an io.Closer it is
// closed along with the sink.
func NewJSON(w io.Writer, flushInterval time.Duration) *JSON {
	if w == nil {
		w = io.Discard
	}
	buf := bufio.NewWriter(w)
	sink := &JSON{
		writer:    buf,
		encoder:   json.NewEncoder(buf),
		autoFlush: flushInterval <= 0,
		stop:      make(chan struct{}),
	}
	if c, ok := w.(io.Closer); ok {
		sink.closer = c
	}
	if flushInterval > 0 {
		go sink.periodicFlush(flushInterval)
	}
	return sink
}

func (s *JSON) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wire := jsonEvent{
		Type:     event.Type,
		Tick:     event.Tick,
		Time:     event.Time.UTC().Format(time.RFC3339Nano),
		Severity: event.Severity.String(),
		Category: event.Category,
		Actor:    event.Actor,
		Targets:  event.Targets,
		Payload:  event.Payload,
		Extra:    event.Extra,
	}
	if err := s.encoder.Encode(wire); err != nil {
		return err
	}
	if s.autoFlush {
		return s.writer.Flush()
	}
	return nil
}

func (s *JSON) Close(context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.writer.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
		s.closer = nil
	}
	return err
}

func (s *JSON) periodicFlush(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			_ = s.writer.Flush()
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}
