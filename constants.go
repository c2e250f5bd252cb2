package server

import "time"

// ProtocolVersion tags every message crossing the authority boundary.
const ProtocolVersion = 1

const (
	// writeWait bounds a single websocket write before the subscriber is
	// considered dead.
	writeWait = 5 * time.Second

	// disconnectAfter is how long a subscriber may stay silent before the
	// hub prunes its connection. The ledger entry survives the prune.
	disconnectAfter = 30 * time.Second

	// processInterval is the cadence of the hub loop that drains staged
	// commands into the session.
	processInterval = 10 * time.Millisecond

	// defaultCommandBuffer is the capacity of the inbound command ring.
	defaultCommandBuffer = 256

	// defaultAmmoPerPlayer seeds ledger entries when the host does not
	// override the allowance.
	defaultAmmoPerPlayer = 5

	// defaultMaxShotDistance caps the hit-test ray length in world units.
	defaultMaxShotDistance = 150.0
)

// Hit-test filter mask bits understood by RayCaster implementations.
const (
	HitMaskPlayers uint32 = 1 << 0
	HitMaskWorld   uint32 = 1 << 1

	defaultHitMask = HitMaskPlayers | HitMaskWorld
)

// Shot rejection reasons reported by Session.SubmitShot.
const (
	ShotRejectSpoofedShooter = "spoofed_shooter"
	ShotRejectUnknownPlayer  = "unknown_player"
	ShotRejectOutOfAmmo      = "out_of_ammo"
)
