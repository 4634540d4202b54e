package pathfinding

import "voxelnav.ai/internal/voxel"

type PathPoint struct {
	Pos          voxel.Vec3i  `json:"pos"`
	OnLadder     bool         `json:"on_ladder,omitempty"`
	LadderFacing voxel.Facing `json:"ladder_facing,omitempty"`
}

// Path is the ordered route from the first step after the start to the end node.
type Path struct {
	points []PathPoint
}

func NewPath(points []PathPoint) *Path {
	cp := make([]PathPoint, len(points))
	copy(cp, points)
	return &Path{points: cp}
}

func (p *Path) Len() int {
	if p == nil {
		return 0
	}
	return len(p.points)
}

func (p *Path) At(i int) PathPoint { return p.points[i] }

// Points returns a copy of the route.
func (p *Path) Points() []PathPoint {
	if p == nil {
		return nil
	}
	out := make([]PathPoint, len(p.points))
	copy(out, p.points)
	return out
}

// End returns the last point, or false for an empty path.
func (p *Path) End() (PathPoint, bool) {
	if p.Len() == 0 {
		return PathPoint{}, false
	}
	return p.points[len(p.points)-1], true
}

// buildPath walks the parent chain from target back to the root (excluded).
func (j *Job) buildPath(target *Node) *Path {
	length := 0
	for n := target; n.Parent != nil; n = n.Parent {
		length++
	}

	points := make([]PathPoint, length)
	var next *Node
	for n := target; n.Parent != nil; n = n.Parent {
		if j.debug != nil {
			j.debug.onPath(n)
		}
		length--

		pos := n.Pos
		if n.IsSwimming {
			// Keeps the mover from spinning in place at surface nodes.
			pos = pos.Below(1)
		}
		p := PathPoint{Pos: pos}

		switch {
		case next != nil && onLadder(n, next, pos):
			p.OnLadder = true
			// Facing only matters when climbing up.
			if next.Pos.Y > pos.Y {
				p.LadderFacing = j.ladderFacing(pos)
			}
		case onLadder(n.Parent, n.Parent, pos):
			p.OnLadder = true
			if n.Pos.Y > n.Parent.Pos.Y {
				if n.IsLadder {
					p.LadderFacing = j.ladderFacing(pos)
				} else {
					p.LadderFacing = j.ladderFacing(n.Parent.Pos)
				}
			}
		}

		points[length] = p
		next = n
	}

	j.tracePath(points)
	return &Path{points: points}
}

func onLadder(n, next *Node, pos voxel.Vec3i) bool {
	return next != nil && n.IsLadder && next.Pos.SameColumn(pos)
}

func (j *Job) ladderFacing(pos voxel.Vec3i) voxel.Facing {
	// Vines carry a side mask instead of a facing; BlockState.Facing decodes both.
	return j.world.BlockState(pos).Facing()
}

func (j *Job) tracePath(points []PathPoint) {
	if j.cfg.Verbosity < VerbosityBasic {
		return
	}
	j.log.Printf("path found:")
	for _, p := range points {
		j.log.Printf("step: [%d,%d,%d]", p.Pos.X, p.Pos.Y, p.Pos.Z)
	}
	j.log.Printf("total nodes visited %d / %d", j.totalVisited, j.totalAdded)
}
