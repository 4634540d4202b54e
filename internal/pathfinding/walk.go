package pathfinding

import "voxelnav.ai/internal/voxel"

const (
	stepCost      = 1.0
	jumpDropTax   = 1.1
	swimCostScale = 5.0
)

func (j *Job) walkCurrentNode(n *Node) {
	var d voxel.Vec3i
	if n.Parent != nil {
		d = n.Pos.Sub(n.Parent.Pos)
	}
	horizontal := d.X != 0 || d.Z != 0

	if n.IsLadder && (d.Y >= 0 || horizontal) {
		j.walk(n, voxel.Up)
	}
	if (d.Y <= 0 || horizontal) && j.ground.t.ladder(n.Pos.Below(1)) {
		j.walk(n, voxel.Down)
	}

	prune := j.cfg.PruneReverse
	if !prune || d.Z <= 0 {
		j.walk(n, voxel.North)
	}
	if !prune || d.X >= 0 {
		j.walk(n, voxel.East)
	}
	if !prune || d.Z >= 0 {
		j.walk(n, voxel.South)
	}
	if !prune || d.X <= 0 {
		j.walk(n, voxel.West)
	}
}

// walk tries to move from parent by d, creating or improving the node it
// lands on. It reports whether the node was (re)queued.
func (j *Job) walk(parent *Node, d voxel.Vec3i) bool {
	return j.walkChain(parent, d, 0)
}

func (j *Job) walkChain(parent *Node, d voxel.Vec3i, jumps int) bool {
	target := parent.Pos.Add(d)

	y, ok := j.ground.Resolve(parent, target)
	if !ok || y < j.cfg.MinY {
		return false
	}
	pos := voxel.Vec3i{X: target.X, Y: y, Z: target.Z}

	node := j.nodes[pos]
	if node != nil && node.Closed {
		return false
	}

	swimming := j.swimming(pos, node)
	cost := parent.Cost + computeCost(pos.Sub(parent.Pos), swimming)
	h := j.goal.Heuristic(pos)
	score := cost + h

	if node != nil {
		if !j.updateNode(parent, node, h, cost, score) {
			return false
		}
	} else {
		node = j.createNode(parent, pos, swimming, h, cost, score)
	}
	j.open.push(node)

	if j.cfg.JumpPointSearch && jumps < j.cfg.JumpPointLimit && node.Heuristic <= parent.Heuristic {
		j.walkChain(node, d, jumps+1)
	}
	return true
}

func (j *Job) swimming(pos voxel.Vec3i, existing *Node) bool {
	if existing != nil {
		return existing.IsSwimming
	}
	return j.ground.t.liquid(pos.Below(1))
}

// computeCost prices one move. d is the resolved delta, so jumps and drops
// pay the tax even when they started as a horizontal step.
func computeCost(d voxel.Vec3i, swimming bool) float64 {
	cost := stepCost
	if d.Y != 0 && (d.X != 0 || d.Z != 0) {
		cost *= jumpDropTax
	}
	if swimming {
		cost *= swimCostScale
	}
	return cost
}

func (j *Job) createNode(parent *Node, pos voxel.Vec3i, swimming bool, h, cost, score float64) *Node {
	n := newNode(parent, pos, cost, h, score)
	if j.ground.t.ladder(pos) {
		n.IsLadder = true
	} else if swimming {
		n.IsSwimming = true
	}

	j.totalAdded++
	n.CounterAdded = j.totalAdded
	j.nodes[pos] = n
	if j.debug != nil {
		j.debug.discovered(n)
	}
	return n
}

// updateNode rewires an open node through a cheaper parent. The node leaves
// the open set before its key changes.
func (j *Job) updateNode(parent, n *Node, h, cost, score float64) bool {
	if score >= n.Score {
		return false
	}
	if !j.open.remove(n) {
		return false
	}
	n.Parent = parent
	n.Steps = parent.Steps + 1
	n.Cost = cost
	n.Heuristic = h
	n.Score = score
	return true
}
