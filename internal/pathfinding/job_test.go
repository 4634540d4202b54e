package pathfinding

import (
	"context"
	"io"
	"log"
	"reflect"
	"testing"
	"time"

	"voxelnav.ai/internal/voxel"
)

type toPos struct{ dest voxel.Vec3i }

func (g toPos) Heuristic(p voxel.Vec3i) float64 {
	return float64(voxel.ManhattanDistance(p, g.dest)) * 1.001
}

func (g toPos) IsDestination(n *Node) bool { return n.Pos == g.dest }

func (g toPos) ResultScore(n *Node) float64 {
	d := n.Pos.Sub(g.dest)
	return -float64(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

func flatWorld(t *testing.T) *voxel.Grid {
	t.Helper()
	g := voxel.NewGrid(nil)
	stone := g.Catalog().MustLookup("STONE")
	g.Fill(voxel.Vec3i{X: -10, Y: -1, Z: -10}, voxel.Vec3i{X: 15, Y: -1, Z: 15}, voxel.Block{ID: stone})
	return g
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Logger = log.New(io.Discard, "", 0)
	return cfg
}

func TestJob_FlatPlane(t *testing.T) {
	g := flatWorld(t)
	end := voxel.Vec3i{X: 5, Y: 0, Z: 5}
	job := NewJob(g, voxel.Vec3i{}, toPos{end}, testConfig())

	path := job.Run(context.Background())
	if path == nil {
		t.Fatalf("expected a path")
	}
	if path.Len() != 10 {
		t.Fatalf("path length: got %d want 10 (%v)", path.Len(), path.Points())
	}
	last, _ := path.End()
	if last.Pos != end {
		t.Fatalf("path ends at %v, want %v", last.Pos, end)
	}
	for i, p := range path.Points() {
		if p.Pos.Y != 0 || p.OnLadder {
			t.Fatalf("point %d: unexpected %+v", i, p)
		}
		prev := voxel.Vec3i{}
		if i > 0 {
			prev = path.At(i - 1).Pos
		}
		if voxel.ManhattanDistance(prev, p.Pos) != 1 {
			t.Fatalf("point %d is not adjacent to its predecessor: %v -> %v", i, prev, p.Pos)
		}
	}

	res := job.Result()
	if !res.IsDone() || res.Status() != StatusComplete {
		t.Fatalf("result not settled: %v", res.Status())
	}
	if !res.PathReachesDestination() {
		t.Fatalf("expected reaches destination")
	}
	if visited, added := res.Stats(); visited == 0 || added < visited {
		t.Fatalf("stats: visited=%d added=%d", visited, added)
	}
}

func TestJob_Deterministic(t *testing.T) {
	g := flatWorld(t)
	// A wall with a single gap forces ties between equally good routes.
	plank := g.Catalog().MustLookup("PLANK")
	g.Fill(voxel.Vec3i{X: 3, Y: 0, Z: -5}, voxel.Vec3i{X: 3, Y: 1, Z: 10}, voxel.Block{ID: plank})
	g.SetBlock(voxel.Vec3i{X: 3, Y: 0, Z: 2}, voxel.Block{})
	g.SetBlock(voxel.Vec3i{X: 3, Y: 1, Z: 2}, voxel.Block{})

	end := voxel.Vec3i{X: 7, Y: 0, Z: 4}
	var first []PathPoint
	for i := 0; i < 5; i++ {
		job := NewJob(g, voxel.Vec3i{}, toPos{end}, testConfig())
		path := job.Run(context.Background())
		if path == nil {
			t.Fatalf("run %d: no path", i)
		}
		if i == 0 {
			first = path.Points()
			continue
		}
		if !reflect.DeepEqual(first, path.Points()) {
			t.Fatalf("run %d differs:\n%v\n%v", i, first, path.Points())
		}
	}
}

// closeRecorder snapshots every node at the moment it is closed.
type closeRecorder struct {
	toPos
	seen map[*Node]Node
}

func (g *closeRecorder) IsDestination(n *Node) bool {
	if !n.Closed {
		panic("destination check on open node")
	}
	g.seen[n] = *n
	return g.toPos.IsDestination(n)
}

func TestJob_ClosedNodesAreFinal(t *testing.T) {
	g := flatWorld(t)
	rec := &closeRecorder{toPos: toPos{voxel.Vec3i{X: 8, Y: 0, Z: -6}}, seen: map[*Node]Node{}}
	job := NewJob(g, voxel.Vec3i{}, rec, testConfig())
	if job.Run(context.Background()) == nil {
		t.Fatalf("expected a path")
	}
	if len(rec.seen) == 0 {
		t.Fatalf("no nodes recorded")
	}
	for n, at := range rec.seen {
		if n.Parent != at.Parent || n.Cost != at.Cost || n.Heuristic != at.Heuristic || n.Score != at.Score || n.Steps != at.Steps {
			t.Fatalf("node %v changed after close: %+v -> %+v", n.Pos, at, *n)
		}
	}
}

func TestJob_OneNodePerPosition(t *testing.T) {
	g := flatWorld(t)
	job := NewJob(g, voxel.Vec3i{}, toPos{voxel.Vec3i{X: 9, Y: 0, Z: 9}}, testConfig())
	job.Run(context.Background())

	for pos, n := range job.nodes {
		if n.Pos != pos {
			t.Fatalf("node keyed %v has position %v", pos, n.Pos)
		}
	}
	if len(job.nodes) != job.totalAdded {
		t.Fatalf("visited map has %d nodes, %d were created", len(job.nodes), job.totalAdded)
	}
	seen := map[int]bool{}
	for _, n := range job.nodes {
		if seen[n.CounterAdded] {
			t.Fatalf("creation counter %d reused", n.CounterAdded)
		}
		seen[n.CounterAdded] = true
	}
}

func TestJob_DecreaseKey(t *testing.T) {
	g := flatWorld(t)
	job := NewJob(g, voxel.Vec3i{}, toPos{voxel.Vec3i{X: 5}}, testConfig())
	root := job.startNode()
	if job.open.pop() != root {
		t.Fatalf("start node not queued")
	}
	root.Closed = true

	a := job.createNode(root, voxel.Vec3i{X: 1}, false, 4, 1, 5)
	b := job.createNode(root, voxel.Vec3i{Z: 1}, false, 6, 1, 7)
	c := job.createNode(root, voxel.Vec3i{X: -1}, false, 6, 3, 9)
	for _, n := range []*Node{a, b, c} {
		job.open.push(n)
	}

	if job.updateNode(a, c, 6, 4, 10) {
		t.Fatalf("update with a worse score must be rejected")
	}
	if !job.updateNode(a, c, 2, 2, 4) {
		t.Fatalf("update with a better score rejected")
	}
	if job.open.contains(c) {
		t.Fatalf("updated node must leave the open set before re-insertion")
	}
	job.open.push(c)

	if c.Parent != a || c.Steps != a.Steps+1 || c.Score != 4 {
		t.Fatalf("node not rewired: parent=%v steps=%d score=%v", c.Parent.Pos, c.Steps, c.Score)
	}
	order := []*Node{job.open.pop(), job.open.pop(), job.open.pop()}
	if order[0] != c || order[1] != a || order[2] != b {
		t.Fatalf("pop order: %v %v %v", order[0].Pos, order[1].Pos, order[2].Pos)
	}

	stray := newNode(root, voxel.Vec3i{X: 2}, 0, 0, 0)
	if job.updateNode(root, stray, 0, 0, -1) {
		t.Fatalf("update of a node outside the open set must be rejected")
	}
}

func TestJob_SwimCost(t *testing.T) {
	g := flatWorld(t)
	water := g.Catalog().MustLookup("WATER")
	g.Fill(voxel.Vec3i{X: 1, Y: -1, Z: -1}, voxel.Vec3i{X: 3, Y: -1, Z: 1}, voxel.Block{ID: water})

	job := NewJob(g, voxel.Vec3i{}, toPos{voxel.Vec3i{X: 5}}, testConfig())
	root := job.startNode()
	job.open.pop()
	root.Closed = true

	if !job.walk(root, voxel.East) {
		t.Fatalf("walk onto water rejected")
	}
	n := job.nodes[voxel.Vec3i{X: 1}]
	if n == nil || !n.IsSwimming {
		t.Fatalf("expected swimming node, got %+v", n)
	}
	if n.Cost != 5 {
		t.Fatalf("swim step cost: got %v want 5", n.Cost)
	}

	if got := computeCost(voxel.Vec3i{X: 1, Y: 1}, false); got != 1.1 {
		t.Fatalf("jump cost: got %v", got)
	}
	if got := computeCost(voxel.Vec3i{Y: 1}, false); got != 1 {
		t.Fatalf("vertical cost: got %v", got)
	}

	cfg := testConfig()
	cfg.AllowSwimming = false
	dry := NewJob(g, voxel.Vec3i{}, toPos{voxel.Vec3i{X: 5}}, cfg)
	r := dry.startNode()
	dry.open.pop()
	r.Closed = true
	if dry.walk(r, voxel.East) {
		t.Fatalf("walk onto water allowed with swimming disabled")
	}
}

func TestJob_SwimmingPointsAreLowered(t *testing.T) {
	g := flatWorld(t)
	water := g.Catalog().MustLookup("WATER")
	g.Fill(voxel.Vec3i{X: 1, Y: -1, Z: 0}, voxel.Vec3i{X: 2, Y: -1, Z: 0}, voxel.Block{ID: water})
	// A wall across the whole floor leaves the water as the only crossing.
	plank := g.Catalog().MustLookup("PLANK")
	g.Fill(voxel.Vec3i{X: 1, Y: 0, Z: -10}, voxel.Vec3i{X: 2, Y: 1, Z: -1}, voxel.Block{ID: plank})
	g.Fill(voxel.Vec3i{X: 1, Y: 0, Z: 1}, voxel.Vec3i{X: 2, Y: 1, Z: 15}, voxel.Block{ID: plank})

	path := NewJob(g, voxel.Vec3i{}, toPos{voxel.Vec3i{X: 3}}, testConfig()).Run(context.Background())
	if path == nil || path.Len() != 3 {
		t.Fatalf("unexpected path %v", path.Points())
	}
	want := []voxel.Vec3i{{X: 1, Y: -1}, {X: 2, Y: -1}, {X: 3}}
	for i, p := range path.Points() {
		if p.Pos != want[i] {
			t.Fatalf("point %d: got %v want %v", i, p.Pos, want[i])
		}
	}
}

func ladderWorld(t *testing.T, id string, meta uint8, height int) *voxel.Grid {
	t.Helper()
	g := flatWorld(t)
	for y := 0; y < height; y++ {
		g.Set(voxel.Vec3i{Y: y}, id, meta)
	}
	return g
}

func TestJob_LadderAscent(t *testing.T) {
	cases := []struct {
		name string
		id   string
		meta uint8
		want voxel.Facing
	}{
		{"ladder", "LADDER", uint8(voxel.FacingNorth), voxel.FacingNorth},
		{"vine", "VINE", voxel.VineWest | voxel.VineEast, voxel.FacingWest},
	}
	const n = 4
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := ladderWorld(t, tc.id, tc.meta, n)
			path := NewJob(g, voxel.Vec3i{}, toPos{voxel.Vec3i{Y: n}}, testConfig()).Run(context.Background())
			if path == nil || path.Len() != n {
				t.Fatalf("expected %d points, got %v", n, path.Points())
			}
			for i, p := range path.Points() {
				if p.Pos != (voxel.Vec3i{Y: i + 1}) {
					t.Fatalf("point %d at %v", i, p.Pos)
				}
				if !p.OnLadder || p.LadderFacing != tc.want {
					t.Fatalf("point %d: on_ladder=%v facing=%v", i, p.OnLadder, p.LadderFacing)
				}
			}
		})
	}
}

func TestJob_CancelledReturnsNil(t *testing.T) {
	g := flatWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := NewJob(g, voxel.Vec3i{}, toPos{voxel.Vec3i{X: 5, Z: 5}}, testConfig())
	if path := job.Run(ctx); path != nil {
		t.Fatalf("expected nil path, got %v", path.Points())
	}
	if job.Result().Status() != StatusCancelled || job.Result().Path() != nil {
		t.Fatalf("result: %v", job.Result().Status())
	}
}

func TestJob_DebugSleepHonoursCancel(t *testing.T) {
	g := flatWorld(t)
	obs := NewDebugObserver()
	obs.Enable()
	changed := obs.Changed()

	cfg := testConfig()
	cfg.Observer = obs
	cfg.DebugSleep = time.Hour
	job := NewJob(g, voxel.Vec3i{}, toPos{voxel.Vec3i{X: 5, Z: 5}}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan *Path, 1)
	go func() { out <- job.Run(ctx) }()

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatalf("no interim publish")
	}
	snap := obs.Snapshot()
	if snap.Path != nil || len(snap.Visited) != 1 || snap.Visited[0] != (voxel.Vec3i{}) {
		t.Fatalf("interim snapshot: %+v", snap)
	}
	if len(snap.NotVisited) == 0 {
		t.Fatalf("interim snapshot has no frontier")
	}

	cancel()
	select {
	case p := <-out:
		if p != nil {
			t.Fatalf("cancelled search returned a path")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("search did not stop")
	}
}

func TestJob_PublishesFinalSets(t *testing.T) {
	g := flatWorld(t)
	obs := NewDebugObserver()
	obs.Enable()
	cfg := testConfig()
	cfg.Observer = obs

	path := NewJob(g, voxel.Vec3i{}, toPos{voxel.Vec3i{X: 5, Z: 5}}, cfg).Run(context.Background())
	snap := obs.Snapshot()
	if len(snap.Path) != path.Len() {
		t.Fatalf("debug path has %d nodes, path has %d", len(snap.Path), path.Len())
	}
	if snap.Version == 0 || len(snap.Visited) == 0 {
		t.Fatalf("snapshot: %+v", snap)
	}

	obs.Disable()
	if s := obs.Snapshot(); s.Path != nil || s.Visited != nil {
		t.Fatalf("disable must clear the slots")
	}
}

type panicGoal struct{ toPos }

func (panicGoal) ResultScore(*Node) float64 { panic("boom") }

func TestJob_RecoversPanic(t *testing.T) {
	g := flatWorld(t)
	job := NewJob(g, voxel.Vec3i{}, panicGoal{toPos{voxel.Vec3i{X: 3}}}, testConfig())
	if path := job.Run(context.Background()); path != nil {
		t.Fatalf("expected nil path")
	}
	if job.Result().Status() != StatusFailed {
		t.Fatalf("status: %v", job.Result().Status())
	}
}

func TestJob_BestEffort(t *testing.T) {
	g := flatWorld(t)
	cfg := testConfig()
	cfg.MaxRange = 3
	// Unreachable: floating in the air far away.
	dest := voxel.Vec3i{X: 40, Y: 20, Z: 0}
	job := NewJob(g, voxel.Vec3i{}, toPos{dest}, cfg)

	path := job.Run(context.Background())
	if path == nil || path.Len() == 0 {
		t.Fatalf("expected a best-effort path")
	}
	if job.Result().PathReachesDestination() {
		t.Fatalf("best-effort path must not reach the destination")
	}
	last, _ := path.End()
	if last.Pos.X <= 0 {
		t.Fatalf("best-effort path went the wrong way: %v", last.Pos)
	}
}

func TestJob_JumpPointSearch(t *testing.T) {
	g := flatWorld(t)
	cfg := testConfig()
	cfg.JumpPointSearch = true
	cfg.JumpPointLimit = 2

	end := voxel.Vec3i{X: 8, Z: 3}
	job := NewJob(g, voxel.Vec3i{}, toPos{end}, cfg)
	path := job.Run(context.Background())
	if path == nil || !job.Result().PathReachesDestination() {
		t.Fatalf("expected a path with greedy extension")
	}
	if last, _ := path.End(); last.Pos != end {
		t.Fatalf("ends at %v", last.Pos)
	}
}

func TestJob_WithoutReversePruning(t *testing.T) {
	g := flatWorld(t)
	cfg := testConfig()
	cfg.PruneReverse = false
	end := voxel.Vec3i{X: 5, Y: 0, Z: 5}
	job := NewJob(g, voxel.Vec3i{}, toPos{end}, cfg)

	path := job.Run(context.Background())
	if path.Len() != 10 || !job.Result().PathReachesDestination() {
		t.Fatalf("path: %v reaches=%v", path.Points(), job.Result().PathReachesDestination())
	}
	if last, _ := path.End(); last.Pos != end {
		t.Fatalf("path ends at %v, want %v", last.Pos, end)
	}
}

func TestJob_RejectsBelowMinY(t *testing.T) {
	g := flatWorld(t)
	cfg := testConfig()
	cfg.MinY = 1
	job := NewJob(g, voxel.Vec3i{}, toPos{voxel.Vec3i{X: 5, Z: 5}}, cfg)

	path := job.Run(context.Background())
	if path == nil || path.Len() != 0 {
		t.Fatalf("expected an empty path, got %v", path.Points())
	}
	if job.Result().PathReachesDestination() {
		t.Fatalf("must not reach the destination")
	}
	if job.Result().Status() != StatusComplete {
		t.Fatalf("status: %v", job.Result().Status())
	}
}
