// Asynchronous pathfinding service. Searches run on a dedicated worker
// goroutine so a slow search can never stall the simulation tick; the
// only data crossing the boundary is a copy of the grid at startup plus
// id-correlated request/result messages.
package nav

import (
	"sync/atomic"

	"github.com/talgya/society-sim/internal/grid"
)

// Request asks for a path between two cells. IDs are assigned by Submit
// and increase monotonically per service.
type Request struct {
	ID    uint64
	Start grid.Cell
	Goal  grid.Cell
}

// Result carries the outcome of one Request. Err is ErrNotWalkable,
// ErrNoPath, or nil; Path is nil whenever Err is non-nil.
type Result struct {
	ID   uint64
	Path []grid.Cell
	Err  error
}

// Service owns the pathfinding worker. Submit from the simulation
// goroutine, drain Results from the same goroutine each tick.
type Service struct {
	g       *grid.Grid
	nextID  atomic.Uint64
	reqs    chan Request
	results chan Result
	done    chan struct{}
}

// StartService copies the grid and launches the worker goroutine.
func StartService(g *grid.Grid) *Service {
	s := &Service{
		g:       g.Copy(),
		reqs:    make(chan Request, 128),
		results: make(chan Result, 128),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Submit enqueues a search and returns its correlation id.
func (s *Service) Submit(start, goal grid.Cell) uint64 {
	id := s.nextID.Add(1)
	s.reqs <- Request{ID: id, Start: start, Goal: goal}
	return id
}

// Results returns the channel search outcomes arrive on.
func (s *Service) Results() <-chan Result {
	return s.results
}

// Close stops the worker. Pending requests are dropped.
func (s *Service) Close() {
	close(s.done)
}

func (s *Service) run() {
	for {
		select {
		case <-s.done:
			return
		case req := <-s.reqs:
			path, err := FindPath(s.g, req.Start, req.Goal)
			select {
			case s.results <- Result{ID: req.ID, Path: path, Err: err}:
			case <-s.done:
				return
			}
		}
	}
}
