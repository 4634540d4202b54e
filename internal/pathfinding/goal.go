package pathfinding

import "voxelnav.ai/internal/voxel"

// Goal supplies what differs between kinds of searches.
//
// Heuristic estimates the remaining cost from a position. Zero gives a
// breadth-first search, an underestimate keeps paths short at extra expense,
// and an overestimate trades path quality for speed.
//
// IsDestination reports whether a closed node ends the search.
//
// ResultScore ranks nodes when no destination is found; the highest-scoring
// node seen becomes the end of a best-effort path.
type Goal interface {
	Heuristic(pos voxel.Vec3i) float64
	IsDestination(n *Node) bool
	ResultScore(n *Node) float64
}

// SearchBounds returns the box a search between start and end may touch,
// padded by half the range horizontally. Vertical extent is left to the caller.
func SearchBounds(start, end voxel.Vec3i, maxRange int) (voxel.Vec3i, voxel.Vec3i) {
	pad := maxRange / 2
	min := voxel.Vec3i{
		X: voxel.MinInt(start.X, end.X) - pad,
		Z: voxel.MinInt(start.Z, end.Z) - pad,
	}
	max := voxel.Vec3i{
		X: voxel.MaxInt(start.X, end.X) + pad,
		Z: voxel.MaxInt(start.Z, end.Z) + pad,
	}
	return min, max
}
