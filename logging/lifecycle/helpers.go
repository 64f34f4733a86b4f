package lifecycle

import (
	"context"

	"github.com/benruijl/walledin/logging"
)

const (
	// EventPlayerJoined is emitted when a LOGIN creates a connection and its player.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerLeft is emitted when a connection and its player are torn down.
	EventPlayerLeft logging.EventType = "lifecycle.player_left"
	// EventLoginRejected is emitted when a LOGIN cannot be honoured.
	EventLoginRejected logging.EventType = "lifecycle.login_rejected"
)

// Reasons reported in PlayerLeftPayload.
const (
	ReasonLogout  = "logout"
	ReasonTimeout = "timeout"
)

type PlayerJoinedPayload struct {
	Requested string  `json:"requested"`
	Assigned  string  `json:"assigned"`
	SpawnX    float32 `json:"spawnX"`
	SpawnY    float32 `json:"spawnY"`
}

type PlayerLeftPayload struct {
	Entity string `json:"entity"`
	Reason string `json:"reason"`
}

type LoginRejectedPayload struct {
	Requested string `json:"requested"`
	Reason    string `json:"reason"`
}

func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerJoinedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerJoined,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{logging.EntityRefFor(payload.Assigned)},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

func PlayerLeft(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerLeftPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerLeft,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{logging.EntityRefFor(payload.Entity)},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

func LoginRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload LoginRejectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventLoginRejected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}
