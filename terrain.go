package main

import (
	"hash/fnv"
	"math"
)

const (
	terrainAmplitude  = 1.5
	terrainWavelength = 40.0
)

// Terrain is the ground surface of one scene. The heightfield is a smooth
// deterministic function of the scene name so every process hosting the
// same scene probes identical ground.
type Terrain struct {
	phaseX float64
	phaseZ float64
}

// NewTerrain creates the terrain for a scene
func NewTerrain(scene string) *Terrain {
	h := fnv.New32a()
	h.Write([]byte(scene))
	sum := h.Sum32()
	return &Terrain{
		phaseX: float64(sum&0xffff) / 0xffff * 2 * math.Pi,
		phaseZ: float64(sum>>16) / 0xffff * 2 * math.Pi,
	}
}

// HeightAt returns the surface height under a ground-plane point, as probed
// by a downward cast from above the body
func (t *Terrain) HeightAt(x, z float64) float64 {
	return terrainAmplitude * (math.Sin(x/terrainWavelength+t.phaseX) +
		math.Cos(z/terrainWavelength+t.phaseZ))
}

// SnapToGround returns p with its footprint resting on the probed surface.
// Runs every physics step; the footprint is never allowed to sink below
// the surface.
func (t *Terrain) SnapToGround(p Vec3) Vec3 {
	p.Y = t.HeightAt(p.X, p.Z)
	return p
}
