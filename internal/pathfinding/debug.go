package pathfinding

import (
	"sort"
	"sync"

	"voxelnav.ai/internal/voxel"
)

// DebugSnapshot is one published set of search nodes. Path is nil for
// interim snapshots taken while a search is still running.
type DebugSnapshot struct {
	Version    uint64
	Visited    []voxel.Vec3i
	NotVisited []voxel.Vec3i
	Path       []voxel.Vec3i
}

// DebugObserver collects node sets for an external visualiser. Every search
// sharing an observer overwrites the previous publish; the latest one wins.
type DebugObserver struct {
	mu      sync.Mutex
	enabled bool
	last    DebugSnapshot
	changed chan struct{}
}

func NewDebugObserver() *DebugObserver {
	return &DebugObserver{changed: make(chan struct{})}
}

func (o *DebugObserver) Enable() {
	o.mu.Lock()
	o.enabled = true
	o.mu.Unlock()
}

// Disable stops collection and clears the last snapshot.
func (o *DebugObserver) Disable() {
	o.mu.Lock()
	o.enabled = false
	o.last = DebugSnapshot{Version: o.last.Version}
	o.mu.Unlock()
}

func (o *DebugObserver) Enabled() bool {
	if o == nil {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.enabled
}

func (o *DebugObserver) Snapshot() DebugSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// Changed returns a channel that is closed on the next publish.
func (o *DebugObserver) Changed() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.changed
}

func (o *DebugObserver) publish(visited, notVisited, path []voxel.Vec3i) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.enabled {
		return
	}
	o.last = DebugSnapshot{
		Version:    o.last.Version + 1,
		Visited:    visited,
		NotVisited: notVisited,
		Path:       path,
	}
	close(o.changed)
	o.changed = make(chan struct{})
}

// debugSets is the per-job side of the observer.
type debugSets struct {
	visited    map[voxel.Vec3i]struct{}
	notVisited map[voxel.Vec3i]struct{}
	path       map[voxel.Vec3i]struct{}
}

func newDebugSets() *debugSets {
	return &debugSets{
		visited:    map[voxel.Vec3i]struct{}{},
		notVisited: map[voxel.Vec3i]struct{}{},
		path:       map[voxel.Vec3i]struct{}{},
	}
}

func (d *debugSets) discovered(n *Node) { d.notVisited[n.Pos] = struct{}{} }

func (d *debugSets) visit(n *Node) {
	delete(d.notVisited, n.Pos)
	d.visited[n.Pos] = struct{}{}
}

func (d *debugSets) onPath(n *Node) { d.path[n.Pos] = struct{}{} }

func sortedPositions(set map[voxel.Vec3i]struct{}) []voxel.Vec3i {
	out := make([]voxel.Vec3i, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return voxel.Less(out[i], out[j]) })
	return out
}
