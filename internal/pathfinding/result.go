package pathfinding

import (
	"context"
	"sync"
)

type Status int

const (
	StatusPending Status = iota
	StatusInProgress
	StatusComplete
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusComplete:
		return "COMPLETE"
	case StatusCancelled:
		return "CANCELLED"
	case StatusFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Result is the handle a caller holds while a Job runs elsewhere.
// Everything on it is settled exactly once, when the search concludes.
type Result struct {
	mu      sync.Mutex
	status  Status
	reaches bool
	path    *Path
	visited int
	added   int

	done chan struct{}
}

func NewResult() *Result {
	return &Result{done: make(chan struct{})}
}

func (r *Result) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// PathReachesDestination is true only when the search ended on a destination node.
func (r *Result) PathReachesDestination() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reaches
}

// Path is nil until the search completes, and stays nil if it was cancelled or failed.
func (r *Result) Path() *Path {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Stats returns the visited and created node counts of the finished search.
func (r *Result) Stats() (visited, added int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visited, r.added
}

func (r *Result) Done() <-chan struct{} { return r.done }

func (r *Result) IsDone() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the search concludes or ctx ends. A nil path with a nil
// error means the search produced no result.
func (r *Result) Wait(ctx context.Context) (*Path, error) {
	select {
	case <-r.done:
		return r.Path(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Result) start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusPending {
		r.status = StatusInProgress
	}
}

func (r *Result) finish(status Status, path *Path, reaches bool, visited, added int) {
	r.mu.Lock()
	if r.status >= StatusComplete {
		r.mu.Unlock()
		return
	}
	r.status = status
	r.path = path
	r.reaches = reaches && path != nil
	r.visited = visited
	r.added = added
	r.mu.Unlock()
	close(r.done)
}

// Cancel settles a result whose job never ran, e.g. when a scheduler drops it.
func (r *Result) Cancel() {
	r.finish(StatusCancelled, nil, false, 0, 0)
}
