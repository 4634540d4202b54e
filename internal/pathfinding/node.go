package pathfinding

import "voxelnav.ai/internal/voxel"

// Node is the search state for one voxel position within a single Job.
type Node struct {
	Pos    voxel.Vec3i
	Parent *Node

	Cost      float64 // g: accumulated cost from the start
	Heuristic float64 // h: estimate to the goal
	Score     float64 // f = g + h, the open-set key
	Steps     int

	IsLadder   bool
	IsSwimming bool
	Closed     bool

	// Diagnostics only.
	CounterVisited int
	CounterAdded   int

	index int // position in the open heap, -1 when not queued
}

func newNode(parent *Node, pos voxel.Vec3i, cost, heuristic, score float64) *Node {
	n := &Node{
		Pos:       pos,
		Parent:    parent,
		Cost:      cost,
		Heuristic: heuristic,
		Score:     score,
		index:     -1,
	}
	if parent != nil {
		n.Steps = parent.Steps + 1
	}
	return n
}

// before is the open-set ordering: score, then heuristic, then creation order.
func (n *Node) before(o *Node) bool {
	if n.Score != o.Score {
		return n.Score < o.Score
	}
	if n.Heuristic != o.Heuristic {
		return n.Heuristic < o.Heuristic
	}
	return n.CounterAdded < o.CounterAdded
}
