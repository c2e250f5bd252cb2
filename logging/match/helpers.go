package match

import (
	"context"

	"nock-and-loose/server/logging"
)

const (
	// EventStarted is emitted when the authority starts a match.
	EventStarted logging.EventType = "match.started"
	// EventStartRejected is emitted when a start request carries an
	// invalid configuration.
	EventStartRejected logging.EventType = "match.start_rejected"
	// EventEnded is emitted when the authority ends a match.
	EventEnded logging.EventType = "match.ended"
	// EventShotFired is emitted for every accepted shot, before
	// resolution.
	EventShotFired logging.EventType = "match.shot_fired"
	// EventShotRejected is emitted when a shot request is dropped.
	EventShotRejected logging.EventType = "match.shot_rejected"
	// EventHitRegistered is emitted once per resolved shot, misses
	// included.
	EventHitRegistered logging.EventType = "match.hit_registered"
	// EventScoringUpdated is emitted when the scoring table is replaced.
	EventScoringUpdated logging.EventType = "match.scoring_updated"
)

// StartedPayload captures the roster shape of a fresh match.
type StartedPayload struct {
	Players int `json:"players"`
	Ammo    int `json:"ammo"`
}

// StartRejectedPayload captures why a start request was refused.
type StartRejectedPayload struct {
	Reason string `json:"reason"`
	Ammo   int    `json:"ammo"`
}

// EndedPayload carries the declared winner.
type EndedPayload struct {
	WinnerID string `json:"winnerId"`
}

// ShotRejectedPayload captures the drop reason and the identity the
// request claimed.
type ShotRejectedPayload struct {
	Reason    string `json:"reason"`
	ClaimedID string `json:"claimedId,omitempty"`
}

// HitPayload captures the resolution of one shot.
type HitPayload struct {
	Region string `json:"region,omitempty"`
	Score  int    `json:"score"`
	Valid  bool   `json:"valid"`
}

// Started publishes a match lifecycle event.
func Started(ctx context.Context, pub logging.Publisher, payload StartedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStarted,
		Actor:    logging.EntityRef{Kind: logging.EntityKindMatch},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload:  payload,
	})
}

// StartRejected publishes an error event for an invalid start request.
func StartRejected(ctx context.Context, pub logging.Publisher, payload StartRejectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStartRejected,
		Actor:    logging.EntityRef{Kind: logging.EntityKindMatch},
		Severity: logging.SeverityError,
		Category: logging.CategoryMatch,
		Payload:  payload,
	})
}

// Ended publishes a match lifecycle event with the winner.
func Ended(ctx context.Context, pub logging.Publisher, payload EndedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventEnded,
		Actor:    logging.EntityRef{Kind: logging.EntityKindMatch},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload:  payload,
	})
}

// ShotFired publishes an info event for an accepted shot.
func ShotFired(ctx context.Context, pub logging.Publisher, shot uint64, actor logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventShotFired,
		Shot:     shot,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
	})
}

// ShotRejected publishes a warning for a dropped shot request.
func ShotRejected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ShotRejectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventShotRejected,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryMatch,
		Payload:  payload,
	})
}

// HitRegistered publishes the resolution of one shot, miss or hit.
func HitRegistered(ctx context.Context, pub logging.Publisher, shot uint64, actor logging.EntityRef, target logging.EntityRef, payload HitPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventHitRegistered,
		Shot:     shot,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload:  payload,
	}
	if target.ID != "" {
		event.Targets = []logging.EntityRef{target}
	}
	pub.Publish(ctx, event)
}

// ScoringUpdated publishes a scoring table replacement.
func ScoringUpdated(ctx context.Context, pub logging.Publisher) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventScoringUpdated,
		Actor:    logging.EntityRef{Kind: logging.EntityKindMatch},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
	})
}
