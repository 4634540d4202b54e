// Package goals holds the search purposes a pathfinding.Job can be given.
package goals

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelnav.ai/internal/pathfinding"
	"voxelnav.ai/internal/voxel"
)

// tieBreak nudges the heuristic so that, among equal scores, nodes closer to
// the target are expanded first.
const tieBreak = 1.001

func vec(p voxel.Vec3i) mgl64.Vec3 {
	return mgl64.Vec3{float64(p.X), float64(p.Y), float64(p.Z)}
}

func distSq(a, b voxel.Vec3i) float64 {
	d := vec(a).Sub(vec(b))
	return d.Dot(d)
}

// MoveTo searches for a specific block. With Slack > 0 any node within that
// euclidean distance of Dest also ends the search.
type MoveTo struct {
	Dest  voxel.Vec3i
	Slack float64
}

func NewMoveTo(dest voxel.Vec3i) MoveTo { return MoveTo{Dest: dest} }

func (g MoveTo) Heuristic(p voxel.Vec3i) float64 {
	return float64(voxel.ManhattanDistance(p, g.Dest)) * tieBreak
}

func (g MoveTo) IsDestination(n *pathfinding.Node) bool {
	if n.Pos == g.Dest {
		return true
	}
	return g.Slack > 0 && distSq(n.Pos, g.Dest) <= g.Slack*g.Slack
}

func (g MoveTo) ResultScore(n *pathfinding.Node) float64 {
	return -distSq(n.Pos, g.Dest)
}

// MoveNear accepts any node within Radius of Center.
type MoveNear struct {
	Center voxel.Vec3i
	Radius float64
}

func (g MoveNear) Heuristic(p voxel.Vec3i) float64 {
	d := vec(p).Sub(vec(g.Center)).Len() - g.Radius
	if d < 0 {
		return 0
	}
	return d * tieBreak
}

func (g MoveNear) IsDestination(n *pathfinding.Node) bool {
	return distSq(n.Pos, g.Center) <= g.Radius*g.Radius
}

func (g MoveNear) ResultScore(n *pathfinding.Node) float64 {
	return -distSq(n.Pos, g.Center)
}

// MoveAway flees from a point until Distance separates the agent from it.
// Horizontal distance only; climbing a tower does not count as fleeing.
type MoveAway struct {
	From     voxel.Vec3i
	Distance float64
}

func (g MoveAway) horizontal(p voxel.Vec3i) float64 {
	d := vec(p).Sub(vec(g.From))
	return math.Hypot(d.X(), d.Z())
}

func (g MoveAway) Heuristic(p voxel.Vec3i) float64 {
	left := g.Distance - g.horizontal(p)
	if left < 0 {
		return 0
	}
	return left * tieBreak
}

func (g MoveAway) IsDestination(n *pathfinding.Node) bool {
	return g.horizontal(n.Pos) >= g.Distance
}

func (g MoveAway) ResultScore(n *pathfinding.Node) float64 {
	h := g.horizontal(n.Pos)
	return h * h
}

var (
	_ pathfinding.Goal = MoveTo{}
	_ pathfinding.Goal = MoveNear{}
	_ pathfinding.Goal = MoveAway{}
)
