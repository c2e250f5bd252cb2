package network

import (
	"context"

	"nock-and-loose/server/logging"
)

const (
	// EventSubscribed is emitted when a player attaches a websocket.
	EventSubscribed logging.EventType = "network.subscribed"
	// EventDisconnected is emitted when a subscriber is removed.
	EventDisconnected logging.EventType = "network.disconnected"
	// EventCommandDropped is emitted when the inbound command ring is
	// full and a staged command is discarded.
	EventCommandDropped logging.EventType = "network.command_dropped"
)

// DisconnectedPayload captures why a subscriber went away.
type DisconnectedPayload struct {
	Reason string `json:"reason"`
}

// CommandDroppedPayload captures the discarded command type.
type CommandDroppedPayload struct {
	Command string `json:"command"`
}

// Subscribed publishes a debug event for a new subscriber.
func Subscribed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSubscribed,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
	})
}

// Disconnected publishes an info event when a subscriber is removed.
func Disconnected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload DisconnectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDisconnected,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// CommandDropped publishes a warning when the command ring overflows.
func CommandDropped(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload CommandDroppedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCommandDropped,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
