// Package world provides the built-in firing-range geometry for the
// standalone server. Hosts embedding the core in an engine supply their own
// RayCaster and SurfaceLookup instead.
package world

import (
	"fmt"
	"math"
	"strings"
	"sync"

	server "nock-and-loose/server"
)

// Zone geometry per stand, in world units with Y up. A stand is three
// stacked spheres; the head carries an inner critical core resolved by
// closest-approach distance.
const (
	limbHeight     = 0.5
	limbRadius     = 0.5
	torsoHeight    = 1.3
	torsoRadius    = 0.45
	headHeight     = 2.0
	headRadius     = 0.25
	criticalRadius = 0.08

	defaultStandSpacing = 6.0

	groundSurface = server.SurfaceHandle("ground")
)

const hitEpsilon = 1e-6

type stand struct {
	ownerID string
	base    server.Vec3
}

// Arena is a static target range: one stand per registered player plus a
// ground plane. It implements server.RayCaster and server.SurfaceLookup.
type Arena struct {
	mu      sync.RWMutex
	stands  map[string]stand
	order   []string
	spacing float64
}

// NewArena constructs an empty range. Spacing is the distance between
// neighbouring stands along the X axis.
func NewArena(spacing float64) *Arena {
	if spacing <= 0 {
		spacing = defaultStandSpacing
	}
	return &Arena{
		stands:  make(map[string]stand),
		order:   make([]string, 0),
		spacing: spacing,
	}
}

// AddStand places a target stand for the given player at the next free
// slot. Adding an existing owner keeps the current placement.
func (a *Arena) AddStand(ownerID, _ string) {
	if ownerID == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.stands[ownerID]; exists {
		return
	}
	slot := len(a.order)
	a.stands[ownerID] = stand{
		ownerID: ownerID,
		base:    server.Vec3{X: float64(slot) * a.spacing},
	}
	a.order = append(a.order, ownerID)
}

// RemoveStand retires a player's stand. Remaining stands keep their
// positions; the slot is not reused until the range resets.
func (a *Arena) RemoveStand(ownerID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.stands[ownerID]; !exists {
		return
	}
	delete(a.stands, ownerID)
	for i, id := range a.order {
		if id == ownerID {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// StandPosition reports where a player's stand sits, for clients placing
// visuals.
func (a *Arena) StandPosition(ownerID string) (server.Vec3, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.stands[ownerID]
	if !ok {
		return server.Vec3{}, false
	}
	return s.base, true
}

type zoneSphere struct {
	zone   string
	center server.Vec3
	radius float64
}

func (s stand) zones() []zoneSphere {
	return []zoneSphere{
		{zone: "head", center: add(s.base, server.Vec3{Y: headHeight}), radius: headRadius},
		{zone: "torso", center: add(s.base, server.Vec3{Y: torsoHeight}), radius: torsoRadius},
		{zone: "limb", center: add(s.base, server.Vec3{Y: limbHeight}), radius: limbRadius},
	}
}

// Cast implements server.RayCaster: nearest surface along the ray within
// maxDistance, honouring the filter mask.
func (a *Arena) Cast(origin, direction server.Vec3, maxDistance float64, mask uint32) (server.RayHit, bool) {
	dir, ok := normalize(direction)
	if !ok || maxDistance <= 0 {
		return server.RayHit{}, false
	}

	best := server.RayHit{}
	bestT := maxDistance
	found := false

	if mask&server.HitMaskPlayers != 0 {
		a.mu.RLock()
		for _, id := range a.order {
			s, okStand := a.stands[id]
			if !okStand {
				continue
			}
			for _, zone := range s.zones() {
				t, hit := raySphere(origin, dir, zone.center, zone.radius)
				if !hit || t > bestT {
					continue
				}
				point := add(origin, scale(dir, t))
				normal, _ := normalize(sub(point, zone.center))
				zoneName := zone.zone
				if zoneName == "head" && closestApproach(origin, dir, zone.center) <= criticalRadius {
					zoneName = "critical"
				}
				best = server.RayHit{
					Point:   point,
					Normal:  normal,
					Surface: server.SurfaceHandle(fmt.Sprintf("stand/%s/%s", s.ownerID, zoneName)),
				}
				bestT = t
				found = true
			}
		}
		a.mu.RUnlock()
	}

	if mask&server.HitMaskWorld != 0 && dir.Y < -hitEpsilon {
		t := -origin.Y / dir.Y
		if t > hitEpsilon && t < bestT {
			best = server.RayHit{
				Point:   add(origin, scale(dir, t)),
				Normal:  server.Vec3{Y: 1},
				Surface: groundSurface,
			}
			found = true
		}
	}

	return best, found
}

// Owner implements server.SurfaceLookup. The ground owns nobody.
func (a *Arena) Owner(surface server.SurfaceHandle) (string, bool) {
	ownerID, _, ok := splitSurface(surface)
	if !ok {
		return "", false
	}
	a.mu.RLock()
	_, exists := a.stands[ownerID]
	a.mu.RUnlock()
	if !exists {
		return "", false
	}
	return ownerID, true
}

// Region implements server.SurfaceLookup.
func (a *Arena) Region(surface server.SurfaceHandle) (server.RegionCategory, bool) {
	_, zone, ok := splitSurface(surface)
	if !ok {
		return "", false
	}
	switch zone {
	case "critical":
		return server.RegionCritical, true
	case "head":
		return server.RegionHead, true
	case "torso":
		return server.RegionTorso, true
	case "limb":
		return server.RegionLimb, true
	default:
		return "", false
	}
}

func splitSurface(surface server.SurfaceHandle) (ownerID, zone string, ok bool) {
	parts := strings.Split(string(surface), "/")
	if len(parts) != 3 || parts[0] != "stand" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// raySphere returns the nearest positive intersection distance.
func raySphere(origin, dir, center server.Vec3, radius float64) (float64, bool) {
	oc := sub(origin, center)
	b := dot(oc, dir)
	c := dot(oc, oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	t := -b - math.Sqrt(disc)
	if t <= hitEpsilon {
		return 0, false
	}
	return t, true
}

// closestApproach is the perpendicular distance from the ray to a point.
func closestApproach(origin, dir, point server.Vec3) float64 {
	oc := sub(point, origin)
	t := dot(oc, dir)
	if t < 0 {
		t = 0
	}
	nearest := add(origin, scale(dir, t))
	return length(sub(point, nearest))
}

func add(a, b server.Vec3) server.Vec3 {
	return server.Vec3{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
}

func sub(a, b server.Vec3) server.Vec3 {
	return server.Vec3{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

func scale(v server.Vec3, s float64) server.Vec3 {
	return server.Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func dot(a, b server.Vec3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func length(v server.Vec3) float64 {
	return math.Sqrt(dot(v, v))
}

func normalize(v server.Vec3) (server.Vec3, bool) {
	l := length(v)
	if l < hitEpsilon {
		return server.Vec3{}, false
	}
	return scale(v, 1/l), true
}
