package pathfinding

import (
	"context"
	"log"
	"runtime/debug"
	"time"

	"voxelnav.ai/internal/voxel"
)

// Job is one A* search over a world view. A Job runs once; its nodes are
// never shared with another goroutine.
type Job struct {
	world  voxel.BlockAccess
	start  voxel.Vec3i
	goal   Goal
	cfg    Config
	log    *log.Logger
	ground GroundResolver

	open  openSet
	nodes map[voxel.Vec3i]*Node
	debug *debugSets

	totalVisited int
	totalAdded   int
	reaches      bool

	result *Result
}

func NewJob(world voxel.BlockAccess, start voxel.Vec3i, goal Goal, cfg Config) *Job {
	if cfg.JumpPointLimit <= 0 {
		cfg.JumpPointLimit = DefaultConfig().JumpPointLimit
	}
	j := &Job{
		world:  world,
		start:  start,
		goal:   goal,
		cfg:    cfg,
		log:    cfg.logger(),
		ground: NewGroundResolver(world, cfg.AllowSwimming),
		nodes:  make(map[voxel.Vec3i]*Node),
		result: NewResult(),
	}
	if cfg.Observer.Enabled() {
		j.debug = newDebugSets()
	}
	return j
}

func (j *Job) Result() *Result { return j.result }

func (j *Job) Start() voxel.Vec3i { return j.start }

// Run performs the search and settles the Result. It returns nil when the
// search was cancelled or failed; otherwise the path to the destination, or
// to the best-scoring node when the destination was not reached.
func (j *Job) Run(ctx context.Context) (path *Path) {
	j.result.start()
	defer func() {
		if r := recover(); r != nil {
			j.log.Printf("pathfinding: search from %s panicked: %v\n%s", j.start, r, debug.Stack())
			path = nil
			j.result.finish(StatusFailed, nil, false, j.totalVisited, j.totalAdded)
		}
	}()

	path = j.search(ctx)
	status := StatusComplete
	if path == nil {
		status = StatusCancelled
	}
	j.result.finish(status, path, j.reaches, j.totalVisited, j.totalAdded)
	return path
}

func (j *Job) search(ctx context.Context) *Path {
	best := j.startNode()
	bestScore := j.goal.ResultScore(best)

	for j.open.Len() > 0 {
		if ctx.Err() != nil {
			return nil
		}

		cur := j.open.pop()
		j.totalVisited++
		cur.CounterVisited = j.totalVisited
		if j.debug != nil {
			j.debug.visit(cur)
		}
		cur.Closed = true

		if j.cfg.Verbosity == VerbosityFull {
			j.log.Printf("examining node %s ; g=%f ; f=%f", cur.Pos, cur.Cost, cur.Score)
		}

		if j.goal.IsDestination(cur) {
			best = cur
			j.reaches = true
			break
		}

		if s := j.goal.ResultScore(cur); s > bestScore {
			best = cur
			bestScore = s
		}

		if cur.Steps <= j.cfg.MaxRange {
			j.walkCurrentNode(cur)
		}

		if !j.debugSleep(ctx) {
			return nil
		}
	}

	path := j.buildPath(best)
	j.publishFinal()
	return path
}

func (j *Job) startNode() *Node {
	h := j.goal.Heuristic(j.start)
	n := newNode(nil, j.start, 0, h, h)

	state := j.world.BlockState(j.start)
	if state.Climbable() {
		n.IsLadder = true
	} else if state.IsLiquid() {
		n.IsSwimming = true
	}

	j.totalAdded++
	n.CounterAdded = j.totalAdded
	j.nodes[j.start] = n
	j.open.push(n)
	if j.debug != nil {
		j.debug.discovered(n)
	}
	return n
}

// debugSleep publishes interim sets and pauses. False means ctx ended.
func (j *Job) debugSleep(ctx context.Context) bool {
	if j.debug == nil || j.cfg.DebugSleep <= 0 || !j.cfg.Observer.Enabled() {
		return true
	}
	j.cfg.Observer.publish(sortedPositions(j.debug.visited), sortedPositions(j.debug.notVisited), nil)

	t := time.NewTimer(j.cfg.DebugSleep)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (j *Job) publishFinal() {
	if j.debug == nil {
		return
	}
	j.cfg.Observer.publish(
		sortedPositions(j.debug.visited),
		sortedPositions(j.debug.notVisited),
		sortedPositions(j.debug.path),
	)
}
