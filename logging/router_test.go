package logging_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/benruijl/walledin/logging"
	"github.com/benruijl/walledin/logging/network"
	"github.com/benruijl/walledin/logging/sinks"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func quiet() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRouterDeliversToEnabledSinks(t *testing.T) {
	enabled := sinks.NewMemory()
	disabled := sinks.NewMemory()
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"memory"}
	cfg.MinimumSeverity = logging.SeverityDebug
	cfg.Fields = map[string]any{"service": "test"}
	clock := fixedClock{now: time.Unix(1_700_000_000, 0)}

	router, err := logging.NewRouter(cfg, clock, quiet(), map[string]logging.Sink{
		"memory": enabled,
		"other":  disabled,
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	network.ProbeSent(context.Background(), router, 7, logging.ConnectionRef("127.0.0.1:5000"), network.ProbeSentPayload{SilentMillis: 2001})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := enabled.OfType(network.EventProbeSent)
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	event := events[0]
	if event.Tick != 7 || !event.Time.Equal(clock.now) {
		t.Fatalf("event = %+v", event)
	}
	if event.Extra["service"] != "test" {
		t.Fatalf("default fields not applied: %+v", event.Extra)
	}
	if len(disabled.Events()) != 0 {
		t.Fatalf("disabled sink received events")
	}
	if stats := router.Stats(); stats.EventsTotal != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestRouterFiltersBySeverity(t *testing.T) {
	mem := sinks.NewMemory()
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"memory"}
	cfg.MinimumSeverity = logging.SeverityWarn

	router, err := logging.NewRouter(cfg, nil, quiet(), map[string]logging.Sink{"memory": mem})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	ctx := context.Background()
	network.ProbeSent(ctx, router, 1, logging.ConnectionRef("a"), network.ProbeSentPayload{})
	network.SendFailed(ctx, router, 1, logging.ConnectionRef("a"), network.SendFailedPayload{Bytes: 10, Error: "boom"})
	router.Close(ctx)

	events := mem.Events()
	if len(events) != 1 || events[0].Type != network.EventSendFailed {
		t.Fatalf("events = %+v", events)
	}
}

func TestRouterRequiresAnEnabledSink(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"missing"}
	_, err := logging.NewRouter(cfg, nil, quiet(), map[string]logging.Sink{"memory": sinks.NewMemory()})
	if !errors.Is(err, logging.ErrNoSinks) {
		t.Fatalf("err = %v, want ErrNoSinks", err)
	}
}

func TestRouterIgnoresPublishAfterClose(t *testing.T) {
	mem := sinks.NewMemory()
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"memory"}
	router, err := logging.NewRouter(cfg, nil, quiet(), map[string]logging.Sink{"memory": mem})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	ctx := context.Background()
	router.Close(ctx)
	network.SendFailed(ctx, router, 1, logging.ConnectionRef("a"), network.SendFailedPayload{})
	if err := router.Close(ctx); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if len(mem.Events()) != 0 {
		t.Fatalf("event accepted after close")
	}
}

func TestWithFieldsKeepsExplicitExtra(t *testing.T) {
	var got logging.Event
	pub := logging.WithFields(logging.PublisherFunc(func(_ context.Context, e logging.Event) {
		got = e
	}), map[string]any{"service": "master", "region": "eu"})

	pub.Publish(context.Background(), logging.Event{Type: "x", Extra: map[string]any{"service": "override"}})
	if got.Extra["service"] != "override" || got.Extra["region"] != "eu" {
		t.Fatalf("extra = %+v", got.Extra)
	}
}
