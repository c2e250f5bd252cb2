package server

// SurfaceHandle identifies a struck surface to the host's identity lookup.
// The core treats it as opaque.
type SurfaceHandle string

// RayHit is the nearest surface found along a hit-test ray.
type RayHit struct {
	Point   Vec3
	Normal  Vec3
	Surface SurfaceHandle
}

// RayCaster is the world-geometry hit-test supplied by the hosting
// environment. Cast returns the nearest surface within maxDistance that
// matches the filter mask, or false when nothing was struck.
type RayCaster interface {
	Cast(origin, direction Vec3, maxDistance float64, mask uint32) (RayHit, bool)
}

// SurfaceLookup resolves a struck surface to its owning participant and
// body-region classification.
type SurfaceLookup interface {
	Owner(surface SurfaceHandle) (string, bool)
	Region(surface SurfaceHandle) (RegionCategory, bool)
}

// Resolver classifies shot requests into outcomes. It is stateless with
// respect to the match; the scoring table is passed per call.
type Resolver struct {
	rays        RayCaster
	surfaces    SurfaceLookup
	maxDistance float64
	mask        uint32
}

// ResolverConfig tunes the hit-test ray. Zero values fall back to the
// package defaults.
type ResolverConfig struct {
	MaxDistance float64
	Mask        uint32
}

// NewResolver wires the resolver to the host collaborators.
func NewResolver(rays RayCaster, surfaces SurfaceLookup, cfg ResolverConfig) *Resolver {
	maxDistance := cfg.MaxDistance
	if maxDistance <= 0 {
		maxDistance = defaultMaxShotDistance
	}
	mask := cfg.Mask
	if mask == 0 {
		mask = defaultHitMask
	}
	return &Resolver{
		rays:        rays,
		surfaces:    surfaces,
		maxDistance: maxDistance,
		mask:        mask,
	}
}

// Resolve runs the geometry hit-test and classifies the result. Exactly one
// surface is considered: the nearest along the ray. A struck surface with
// no owning participant is scenery and resolves to a miss.
func (r *Resolver) Resolve(req ShotRequest, table ScoringTable) ShotOutcome {
	if r == nil || r.rays == nil {
		return miss(req.ShooterID)
	}

	hit, ok := r.rays.Cast(req.Origin, req.Direction, r.maxDistance, r.mask)
	if !ok {
		return miss(req.ShooterID)
	}

	if r.surfaces == nil {
		return miss(req.ShooterID)
	}
	targetID, ok := r.surfaces.Owner(hit.Surface)
	if !ok || targetID == "" {
		return miss(req.ShooterID)
	}

	region, ok := r.surfaces.Region(hit.Surface)
	if !ok || region == "" {
		region = defaultRegion
	}

	return ShotOutcome{
		ShooterID: req.ShooterID,
		TargetID:  targetID,
		Region:    region,
		Score:     table.ScoreFor(region),
		Point:     hit.Point,
		Normal:    hit.Normal,
		Valid:     true,
	}
}
