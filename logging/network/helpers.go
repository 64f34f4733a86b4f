package network

import (
	"context"

	"github.com/benruijl/walledin/logging"
)

const (
	// EventDatagramDropped is emitted when an inbound datagram cannot be used.
	EventDatagramDropped logging.EventType = "network.datagram_dropped"
	// EventDecodeFault is emitted when part of a batch was skipped during decoding.
	EventDecodeFault logging.EventType = "network.decode_fault"
	// EventSendFailed is emitted when a datagram could not be handed to the socket.
	EventSendFailed logging.EventType = "network.send_failed"
	// EventProbeSent is emitted when a silent peer is asked to prove it is alive.
	EventProbeSent logging.EventType = "network.probe_sent"
	// EventBootstrapSent is emitted when a peer receives the full world state.
	EventBootstrapSent logging.EventType = "network.bootstrap_sent"
)

type DatagramDroppedPayload struct {
	Reason string `json:"reason"`
	Size   int    `json:"size"`
}

type DecodeFaultPayload struct {
	Faults []string `json:"faults"`
}

type SendFailedPayload struct {
	Bytes int    `json:"bytes"`
	Error string `json:"error"`
}

type ProbeSentPayload struct {
	SilentMillis int64 `json:"silentMillis"`
}

type BootstrapSentPayload struct {
	Entities  int `json:"entities"`
	Datagrams int `json:"datagrams"`
}

// DatagramDropped publishes a debug event for discarded inbound traffic.
func DatagramDropped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DatagramDroppedPayload) {
	publish(ctx, pub, EventDatagramDropped, logging.SeverityDebug, tick, actor, payload)
}

func DecodeFault(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DecodeFaultPayload) {
	publish(ctx, pub, EventDecodeFault, logging.SeverityWarn, tick, actor, payload)
}

func SendFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SendFailedPayload) {
	publish(ctx, pub, EventSendFailed, logging.SeverityWarn, tick, actor, payload)
}

func ProbeSent(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ProbeSentPayload) {
	publish(ctx, pub, EventProbeSent, logging.SeverityDebug, tick, actor, payload)
}

func BootstrapSent(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BootstrapSentPayload) {
	publish(ctx, pub, EventBootstrapSent, logging.SeverityInfo, tick, actor, payload)
}

func publish(ctx context.Context, pub logging.Publisher, typ logging.EventType, sev logging.Severity, tick uint64, actor logging.EntityRef, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     typ,
		Tick:     tick,
		Actor:    actor,
		Severity: sev,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
