package pathfinding

import "voxelnav.ai/internal/voxel"

// GroundResolver decides where, vertically, a horizontal move from a parent
// node may land: level, one block up, one block down, on a liquid surface,
// or on a climbable block. It only reads the world.
type GroundResolver struct {
	t             terrain
	allowSwimming bool
}

func NewGroundResolver(world voxel.BlockAccess, allowSwimming bool) GroundResolver {
	return GroundResolver{t: terrain{world: world}, allowSwimming: allowSwimming}
}

// Resolve returns the y to stand on at target's column, or false if the move
// is impossible. parent may be nil for the start position.
func (r GroundResolver) Resolve(parent *Node, target voxel.Vec3i) (int, bool) {
	// The block above the target is needed by every outcome.
	if r.headBlocked(parent, target) {
		return 0, false
	}

	here := r.t.state(target)
	if !IsPassable(here) {
		return r.jumpUp(parent, target, here)
	}

	below := r.t.state(target.Below(1))
	switch Surface(below) {
	case SurfaceWalkable:
		return target.Y, true
	case SurfaceNotPassable:
		return 0, false
	}
	return r.notStanding(parent, target, below)
}

func (r GroundResolver) headBlocked(parent *Node, target voxel.Vec3i) bool {
	if !r.t.passable(target.Above(1)) {
		return true
	}
	// Leaving a liquid: cannot surface into an occupied space.
	if parent != nil && r.t.liquid(parent.Pos.Below(1)) && !r.t.passable(target) {
		return true
	}
	return false
}

func (r GroundResolver) jumpUp(parent *Node, target voxel.Vec3i, here voxel.BlockState) (int, bool) {
	if parent == nil || parent.IsLadder || parent.IsSwimming {
		return 0, false
	}
	if Surface(here) != SurfaceWalkable {
		return 0, false
	}
	// Two blocks of headroom above the block we land on, and above the origin.
	if !r.t.passable(target.Above(2)) {
		return 0, false
	}
	if !r.t.passable(parent.Pos.Above(2)) {
		return 0, false
	}
	return target.Y + 1, true
}

func (r GroundResolver) notStanding(parent *Node, target voxel.Vec3i, below voxel.BlockState) (int, bool) {
	swimming := parent != nil && parent.IsSwimming

	if below.IsLiquid() {
		if swimming {
			return target.Y, true
		}
		if r.allowSwimming && below.IsWater() {
			return target.Y, true
		}
		return 0, false
	}

	if below.Climbable() {
		return target.Y, true
	}

	return r.drop(parent, target, swimming)
}

func (r GroundResolver) drop(parent *Node, target voxel.Vec3i, swimming bool) (int, bool) {
	if parent == nil || parent.IsLadder || swimming {
		return 0, false
	}
	if Surface(r.t.state(target.Below(2))) == SurfaceWalkable {
		return target.Y - 1, true
	}
	// Too far to fall.
	return 0, false
}
