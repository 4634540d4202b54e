package pathfinding

import "voxelnav.ai/internal/voxel"

// SurfaceType classifies a block as something to stand on.
type SurfaceType uint8

const (
	SurfaceWalkable SurfaceType = iota
	SurfaceDropable
	SurfaceNotPassable
)

func (s SurfaceType) String() string {
	switch s {
	case SurfaceWalkable:
		return "WALKABLE"
	case SurfaceDropable:
		return "DROPABLE"
	case SurfaceNotPassable:
		return "NOT_PASSABLE"
	}
	return "UNKNOWN"
}

// IsPassable reports whether an agent's body may occupy the block.
// Liquids are not passable: swimming happens on top of them.
func IsPassable(b voxel.BlockState) bool {
	m := b.Material()
	if m == voxel.MaterialAir {
		return true
	}
	if m.BlocksMovement() {
		k := b.Kind()
		return k == voxel.KindDoor || k == voxel.KindFenceGate
	}
	return !m.IsLiquid()
}

// Surface classifies the block an agent would stand on.
func Surface(b voxel.BlockState) SurfaceType {
	if b.Kind().IsObstacle() {
		return SurfaceNotPassable
	}
	if b.Material().IsSolid() {
		return SurfaceWalkable
	}
	return SurfaceDropable
}

// terrain binds the classifier to one world view.
type terrain struct {
	world voxel.BlockAccess
}

func (t terrain) state(pos voxel.Vec3i) voxel.BlockState { return t.world.BlockState(pos) }

func (t terrain) passable(pos voxel.Vec3i) bool { return IsPassable(t.state(pos)) }

func (t terrain) ladder(pos voxel.Vec3i) bool { return t.state(pos).Climbable() }

func (t terrain) liquid(pos voxel.Vec3i) bool { return t.state(pos).IsLiquid() }
