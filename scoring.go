package server

// ScoringTable maps body-region categories to point values. The authority
// owns the only mutable copy; replicas receive replacements wholesale via
// the scoringTable broadcast.
type ScoringTable struct {
	Critical int `json:"critical" yaml:"critical"`
	Head     int `json:"head" yaml:"head"`
	Torso    int `json:"torso" yaml:"torso"`
	Limb     int `json:"limb" yaml:"limb"`
}

// DefaultScoringTable returns the values every session starts with.
func DefaultScoringTable() ScoringTable {
	return ScoringTable{
		Critical: 100,
		Head:     50,
		Torso:    25,
		Limb:     10,
	}
}

// ScoreFor returns the points awarded for a region, or 0 for an
// unrecognized or absent category. A miss therefore scores zero without a
// special case.
func (t ScoringTable) ScoreFor(region RegionCategory) int {
	switch region {
	case RegionCritical:
		return t.Critical
	case RegionHead:
		return t.Head
	case RegionTorso:
		return t.Torso
	case RegionLimb:
		return t.Limb
	default:
		return 0
	}
}
