// Package registry holds the master server's log events.
package registry

import (
	"context"

	"github.com/benruijl/walledin/logging"
)

const (
	EventServerRegistered logging.EventType = "registry.server_registered"
	EventServerUpdated    logging.EventType = "registry.server_updated"
	EventServerRefreshed  logging.EventType = "registry.server_refreshed"
	EventServerEvicted    logging.EventType = "registry.server_evicted"
	EventChallengeIssued  logging.EventType = "registry.challenge_issued"
	// EventChallengeIgnored is emitted for a response with a stale nonce or
	// from an address that is not registered.
	EventChallengeIgnored logging.EventType = "registry.challenge_ignored"
	EventRegistryFull     logging.EventType = "registry.full"
	EventQueryServed      logging.EventType = "registry.query_served"
)

type ServerPayload struct {
	Name       string `json:"name"`
	Players    int32  `json:"players"`
	MaxPlayers int32  `json:"maxPlayers"`
	Mode       string `json:"mode"`
}

type EvictedPayload struct {
	AgeMillis int64 `json:"ageMillis"`
}

type ChallengePayload struct {
	Nonce      uint64 `json:"nonce"`
	Recipients int    `json:"recipients,omitempty"`
}

type QueryPayload struct {
	Servers int `json:"servers"`
}

func ServerRegistered(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ServerPayload) {
	publish(ctx, pub, EventServerRegistered, logging.SeverityInfo, actor, payload)
}

func ServerUpdated(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ServerPayload) {
	publish(ctx, pub, EventServerUpdated, logging.SeverityDebug, actor, payload)
}

func ServerRefreshed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef) {
	publish(ctx, pub, EventServerRefreshed, logging.SeverityDebug, actor, nil)
}

func ServerEvicted(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload EvictedPayload) {
	publish(ctx, pub, EventServerEvicted, logging.SeverityInfo, actor, payload)
}

func ChallengeIssued(ctx context.Context, pub logging.Publisher, payload ChallengePayload) {
	publish(ctx, pub, EventChallengeIssued, logging.SeverityDebug, logging.EntityRef{Kind: logging.EntityKindServer}, payload)
}

func ChallengeIgnored(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ChallengePayload) {
	publish(ctx, pub, EventChallengeIgnored, logging.SeverityDebug, actor, payload)
}

func RegistryFull(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ServerPayload) {
	publish(ctx, pub, EventRegistryFull, logging.SeverityWarn, actor, payload)
}

func QueryServed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload QueryPayload) {
	publish(ctx, pub, EventQueryServed, logging.SeverityDebug, actor, payload)
}

func publish(ctx context.Context, pub logging.Publisher, typ logging.EventType, sev logging.Severity, actor logging.EntityRef, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     typ,
		Actor:    actor,
		Severity: sev,
		Category: logging.CategoryRegistry,
		Payload:  payload,
	})
}
