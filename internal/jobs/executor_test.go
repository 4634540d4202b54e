package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"voxelnav.ai/internal/pathfinding"
	"voxelnav.ai/internal/pathfinding/goals"
	"voxelnav.ai/internal/voxel"
)

func plane() *voxel.Grid {
	g := voxel.NewGrid(nil)
	stone := g.Catalog().MustLookup("STONE")
	g.Fill(voxel.Vec3i{X: -16, Y: -1, Z: -16}, voxel.Vec3i{X: 16, Y: -1, Z: 16}, voxel.Block{ID: stone})
	return g
}

func testOptions(workers, queue int) Options {
	cfg := pathfinding.DefaultConfig()
	cfg.MinY = -4
	return Options{Workers: workers, Queue: queue, WorldHeight: 16, Config: cfg}
}

// gate blocks the first heuristic call until released.
type gate struct {
	goals.MoveTo
	once    *sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGate(dest voxel.Vec3i) gate {
	return gate{
		MoveTo:  goals.NewMoveTo(dest),
		once:    &sync.Once{},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g gate) Heuristic(p voxel.Vec3i) float64 {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.MoveTo.Heuristic(p)
}

func wait(t *testing.T, res *pathfinding.Result) *pathfinding.Path {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	path, err := res.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	return path
}

func TestExecutor_RunsSearch(t *testing.T) {
	e := NewExecutor(plane(), testOptions(2, 0))
	defer e.Close()

	end := voxel.Vec3i{X: 5, Z: 5}
	ticket, err := e.Submit(Request{Start: voxel.Vec3i{}, End: end, Goal: goals.NewMoveTo(end)})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := uuid.Parse(ticket.ID); err != nil {
		t.Fatalf("ticket id %q: %v", ticket.ID, err)
	}
	path := wait(t, ticket.Result)
	if path.Len() != 10 || !ticket.Result.PathReachesDestination() {
		t.Fatalf("path: %v reaches=%v", path.Points(), ticket.Result.PathReachesDestination())
	}
	if got := outcomeFor(ticket.Result); got != outcomeReached {
		t.Fatalf("outcome: %s", got)
	}
}

func TestExecutor_Bounds(t *testing.T) {
	e := NewExecutor(plane(), testOptions(1, 0))
	defer e.Close()
	min, max := e.Bounds(voxel.Vec3i{X: 4, Z: -2}, voxel.Vec3i{X: -3, Z: 9})
	want := [2]voxel.Vec3i{{X: -35, Y: -6, Z: -34}, {X: 36, Y: 12, Z: 41}}
	if min != want[0] || max != want[1] {
		t.Fatalf("bounds: %v %v want %v", min, max, want)
	}
}

func TestExecutor_CancelQueued(t *testing.T) {
	e := NewExecutor(plane(), testOptions(1, 0))
	defer e.Close()

	blocker := newGate(voxel.Vec3i{X: 3})
	first, err := e.Submit(Request{End: blocker.Dest, Goal: blocker})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-blocker.entered

	dest := voxel.Vec3i{Z: 3}
	second, err := e.Submit(Request{End: dest, Goal: goals.NewMoveTo(dest)})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !e.Cancel(second.ID) {
		t.Fatalf("cancel of queued job not found")
	}
	if path := wait(t, second.Result); path != nil {
		t.Fatalf("cancelled job returned a path")
	}
	if second.Result.Status() != pathfinding.StatusCancelled {
		t.Fatalf("status: %v", second.Result.Status())
	}

	close(blocker.release)
	if path := wait(t, first.Result); path == nil || path.Len() != 3 {
		t.Fatalf("first job path: %v", path.Points())
	}
}

func TestExecutor_QueueFull(t *testing.T) {
	e := NewExecutor(plane(), testOptions(1, 1))

	blocker := newGate(voxel.Vec3i{X: 3})
	first, err := e.Submit(Request{End: blocker.Dest, Goal: blocker})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-blocker.entered

	dest := voxel.Vec3i{Z: 3}
	if _, err := e.Submit(Request{End: dest, Goal: goals.NewMoveTo(dest)}); err != nil {
		t.Fatalf("submit to queue: %v", err)
	}
	if _, err := e.Submit(Request{End: dest, Goal: goals.NewMoveTo(dest)}); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	close(blocker.release)
	wait(t, first.Result)
	e.Close()
	if _, err := e.Submit(Request{End: dest, Goal: goals.NewMoveTo(dest)}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

type chanRecorder chan Record

func (c chanRecorder) Record(r Record) error {
	c <- r
	return nil
}

func TestExecutor_Records(t *testing.T) {
	rec := make(chanRecorder, 1)
	opts := testOptions(1, 0)
	opts.Recorder = rec
	e := NewExecutor(plane(), opts)
	defer e.Close()

	end := voxel.Vec3i{X: 2}
	ticket, err := e.Submit(Request{End: end, Goal: goals.NewMoveTo(end)})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	wait(t, ticket.Result)

	select {
	case r := <-rec:
		if r.ID != ticket.ID || r.Outcome != outcomeReached || len(r.Path) != 2 || r.End != end.Array() {
			t.Fatalf("record: %+v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no record")
	}
}

func TestExecutor_QueueBoundUnderConcurrentSubmit(t *testing.T) {
	e := NewExecutor(plane(), testOptions(1, 1))
	defer e.Close()

	blocker := newGate(voxel.Vec3i{X: 3})
	first, err := e.Submit(Request{End: blocker.Dest, Goal: blocker})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-blocker.entered

	const n = 16
	dest := voxel.Vec3i{Z: 3}
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Submit(Request{End: dest, Goal: goals.NewMoveTo(dest)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	accepted := 0
	for err := range errs {
		switch err {
		case nil:
			accepted++
		case ErrQueueFull:
		default:
			t.Fatalf("submit: %v", err)
		}
	}
	if accepted != 1 {
		t.Fatalf("accepted %d submissions with a queue of 1", accepted)
	}

	close(blocker.release)
	wait(t, first.Result)
}
