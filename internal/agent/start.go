// Package agent adapts an agent's continuous position to a search start block.
package agent

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelnav.ai/internal/voxel"
)

// maxRise caps how far a submerged agent is lifted looking for the surface.
const maxRise = 256

const edgeMargin = 0.1

// PrepareStart picks the block a search should start from. A swimming agent
// starts at the first non-liquid block above it; an agent standing inside a
// fence, wall or barrier near a block edge is pushed into the neighbouring block.
func PrepareStart(world voxel.BlockAccess, pos mgl64.Vec3, inWater bool) voxel.Vec3i {
	start := voxel.Vec3i{
		X: int(math.Floor(pos.X())),
		Y: int(pos.Y()),
		Z: int(math.Floor(pos.Z())),
	}
	state := world.BlockState(start)

	if inWater {
		for i := 0; i < maxRise && state.IsLiquid(); i++ {
			start = start.Above(1)
			state = world.BlockState(start)
		}
		return start
	}

	switch state.Kind() {
	case voxel.KindFence, voxel.KindWall, voxel.KindBarrier:
	default:
		return start
	}

	dx := pos.X() - math.Floor(pos.X())
	dz := pos.Z() - math.Floor(pos.Z())
	switch {
	case dx < edgeMargin:
		start.X--
	case dx > 1-edgeMargin:
		start.X++
	}
	switch {
	case dz < edgeMargin:
		start.Z--
	case dz > 1-edgeMargin:
		start.Z++
	}
	return start
}
