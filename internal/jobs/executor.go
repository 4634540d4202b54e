// Package jobs runs path searches on a bounded pool of goroutines.
package jobs

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/syncmap"

	"voxelnav.ai/internal/pathfinding"
	"voxelnav.ai/internal/voxel"
)

var (
	ErrClosed    = errors.New("jobs: executor closed")
	ErrQueueFull = errors.New("jobs: queue full")
)

// Source hands out immutable views of the world.
type Source interface {
	Snapshot(a, b voxel.Vec3i) *voxel.Snapshot
}

// Record summarises one finished search for an audit sink.
type Record struct {
	ID         string                  `json:"id"`
	At         time.Time               `json:"at"`
	Start      [3]int                  `json:"start"`
	End        [3]int                  `json:"end"`
	Outcome    string                  `json:"outcome"`
	Visited    int                     `json:"visited"`
	Added      int                     `json:"added"`
	DurationMS float64                 `json:"duration_ms"`
	Path       []pathfinding.PathPoint `json:"path,omitempty"`
}

// Recorder receives a Record after every search that reached a worker.
type Recorder interface {
	Record(Record) error
}

type Options struct {
	Workers int
	// Queue is the number of searches allowed to wait for a worker; 0 means unbounded.
	Queue int
	// WorldHeight is the vertical extent captured above Config.MinY.
	WorldHeight int
	Config      pathfinding.Config
	Logger      *log.Logger
	// Recorder is optional.
	Recorder Recorder
}

type Request struct {
	Start voxel.Vec3i
	// End only sizes the world snapshot; the goal decides where the search stops.
	End  voxel.Vec3i
	Goal pathfinding.Goal
}

// Ticket identifies one submitted search.
type Ticket struct {
	ID     string
	Result *pathfinding.Result
}

type Executor struct {
	src    Source
	opts   Options
	logger *log.Logger

	sem     *semaphore.Weighted
	waiting atomic.Int64
	active  syncmap.Map // id -> context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewExecutor(src Source, opts Options) *Executor {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.WorldHeight <= 0 {
		opts.WorldHeight = 256
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Executor{
		src:    src,
		opts:   opts,
		logger: logger,
		sem:    semaphore.NewWeighted(int64(opts.Workers)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Bounds returns the box of world a search from start towards end may read.
func (e *Executor) Bounds(start, end voxel.Vec3i) (voxel.Vec3i, voxel.Vec3i) {
	min, max := pathfinding.SearchBounds(start, end, e.opts.Config.MaxRange)
	min.Y = e.opts.Config.MinY - 2
	max.Y = e.opts.Config.MinY + e.opts.WorldHeight
	return min, max
}

// Submit snapshots the world around the request and queues the search.
// The returned Result settles when the search finishes or is cancelled.
func (e *Executor) Submit(req Request) (Ticket, error) {
	e.mu.Lock()
	closed := e.closed
	if !closed {
		e.wg.Add(1)
	}
	e.mu.Unlock()
	if closed {
		return Ticket{}, ErrClosed
	}

	// Reserve the queue slot before checking the bound.
	if n := e.waiting.Add(1); e.opts.Queue > 0 && n > int64(e.opts.Queue) {
		e.waiting.Add(-1)
		e.wg.Done()
		searchesTotal.WithLabelValues(outcomeRejected).Inc()
		return Ticket{}, ErrQueueFull
	}

	min, max := e.Bounds(req.Start, req.End)
	world := e.src.Snapshot(min, max)
	job := pathfinding.NewJob(world, req.Start, req.Goal, e.opts.Config)

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(e.ctx)
	e.active.Store(id, cancel)

	queueDepth.Inc()
	go e.run(ctx, id, req, job)

	return Ticket{ID: id, Result: job.Result()}, nil
}

// Cancel stops a queued or running search. Unknown ids are ignored.
func (e *Executor) Cancel(id string) bool {
	v, ok := e.active.Load(id)
	if !ok {
		return false
	}
	v.(context.CancelFunc)()
	return true
}

// Close cancels every outstanding search and waits for the workers to return.
func (e *Executor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cancel()
	e.wg.Wait()
}

func (e *Executor) run(ctx context.Context, id string, req Request, job *pathfinding.Job) {
	defer e.wg.Done()
	defer func() {
		if v, ok := e.active.LoadAndDelete(id); ok {
			v.(context.CancelFunc)()
		}
	}()

	err := e.sem.Acquire(ctx, 1)
	e.waiting.Add(-1)
	queueDepth.Dec()
	if err != nil {
		job.Result().Cancel()
		searchesTotal.WithLabelValues(outcomeCancelled).Inc()
		return
	}
	defer e.sem.Release(1)

	ctx, span := otel.Tracer("voxelnav").Start(ctx, "jobs.Executor.search",
		trace.WithAttributes(
			attribute.String("job_id", id),
			attribute.String("start", req.Start.String()),
			attribute.String("end", req.End.String()),
		),
	)
	defer span.End()

	began := time.Now()
	path := job.Run(ctx)
	elapsed := time.Since(began)

	res := job.Result()
	visited, added := res.Stats()
	searchDuration.Observe(elapsed.Seconds())
	nodesVisited.Observe(float64(visited))

	outcome := outcomeFor(res)
	searchesTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(
		attribute.String("outcome", outcome),
		attribute.Int("visited", visited),
		attribute.Int("added", added),
		attribute.Int("path_len", path.Len()),
	)
	if res.Status() == pathfinding.StatusFailed {
		span.SetStatus(codes.Error, "search failed")
	} else {
		span.SetStatus(codes.Ok, outcome)
	}
	e.logger.Printf("job %s %s: %s in %s (visited=%d added=%d points=%d)",
		id, req.Start, outcome, elapsed, visited, added, path.Len())

	if e.opts.Recorder != nil {
		rec := Record{
			ID:         id,
			At:         began.UTC(),
			Start:      req.Start.Array(),
			End:        req.End.Array(),
			Outcome:    outcome,
			Visited:    visited,
			Added:      added,
			DurationMS: float64(elapsed.Microseconds()) / 1000,
			Path:       path.Points(),
		}
		if err := e.opts.Recorder.Record(rec); err != nil {
			e.logger.Printf("job %s: record: %v", id, err)
		}
	}
}

func outcomeFor(res *pathfinding.Result) string {
	switch res.Status() {
	case pathfinding.StatusFailed:
		return outcomeFailed
	case pathfinding.StatusCancelled:
		return outcomeCancelled
	}
	if res.PathReachesDestination() {
		return outcomeReached
	}
	return outcomeBestEffort
}
