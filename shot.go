package server

// Vec3 is a point or direction in world space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// RegionCategory classifies the body region struck by a shot.
type RegionCategory string

const (
	RegionCritical RegionCategory = "critical"
	RegionHead     RegionCategory = "head"
	RegionTorso    RegionCategory = "torso"
	RegionLimb     RegionCategory = "limb"

	// defaultRegion is assumed when a struck surface carries no
	// classification.
	defaultRegion = RegionTorso
)

// parseRegion validates a region string received from outside the core.
func parseRegion(value string) (RegionCategory, bool) {
	switch RegionCategory(value) {
	case RegionCritical, RegionHead, RegionTorso, RegionLimb:
		return RegionCategory(value), true
	default:
		return "", false
	}
}

// ShotRequest is the fire intent a client submits to the authority. It is
// consumed exactly once and never stored.
type ShotRequest struct {
	Origin    Vec3    `json:"origin"`
	Direction Vec3    `json:"direction"`
	Speed     float64 `json:"speed"`
	FiredAt   int64   `json:"firedAt"`
	ShooterID string  `json:"shooterId"`
}

// ShotOutcome is the resolved result of one processed ShotRequest. Valid is
// true iff both TargetID and Region are present; Score is nonzero only for
// valid outcomes.
type ShotOutcome struct {
	ShooterID string         `json:"shooterId"`
	TargetID  string         `json:"targetId,omitempty"`
	Region    RegionCategory `json:"region,omitempty"`
	Score     int            `json:"score"`
	Point     Vec3           `json:"point"`
	Normal    Vec3           `json:"normal"`
	Valid     bool           `json:"valid"`
}

// miss builds the outcome shared by every non-scoring resolution path.
func miss(shooterID string) ShotOutcome {
	return ShotOutcome{ShooterID: shooterID}
}
