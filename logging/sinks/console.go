package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/benruijl/walledin/logging"
)

// Console prints one human-readable line per event.
type Console struct {
	logger *log.Logger
}

func NewConsole(w io.Writer, prefix string) *Console {
	if w == nil {
		w = io.Discard
	}
	return &Console{logger: log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)}
}

func (s *Console) Write(event logging.Event) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s tick=%d", event.Severity, event.Type, event.Tick)
	if actor := formatEntity(event.Actor); actor != "" {
		b.WriteString(" actor=")
		b.WriteString(actor)
	}
	b.WriteString(formatTargets(event.Targets))
	b.WriteString(formatExtra(event.Extra))
	b.WriteString(formatPayload(event.Payload))
	s.logger.Print(b.String())
	return nil
}

func (s *Console) Close(context.Context) error {
	return nil
}

func formatEntity(ref logging.EntityRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return fmt.Sprintf("%s:%s", ref.Kind, ref.ID)
}

func formatTargets(targets []logging.EntityRef) string {
	if len(targets) == 0 {
		return ""
	}
	parts := make([]string, 0, len(targets))
	for _, target := range targets {
		parts = append(parts, formatEntity(target))
	}
	return " targets=" + strings.Join(parts, ",")
}

func formatExtra(extra map[string]any) string {
	if len(extra) == 0 {
		return ""
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, extra[k])
	}
	return b.String()
}

func formatPayload(payload any) string {
	if payload == nil {
		return ""
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(" payload=%v", payload)
	}
	return " payload=" + string(data)
}
