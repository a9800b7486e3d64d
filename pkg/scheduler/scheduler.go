// Package scheduler implements the two node-readiness strategies the runner
// drives: a topological scheduler for reactive-only runs, and a
// dependency-based scheduler that releases nodes the moment every
// predecessor has completed or begun streaming with at least one chunk
// emitted.
//
// Both schedulers are pure coordinators: neither starts execution, observes
// outputs, nor reacts to cancellation or errors — that is the runner's job.
// Topological is not safe for concurrent calls. Dependency guards its state
// with a mutex: the runner calls NextReady from its coordinator goroutine
// and OnTaskCompleted from the per-node goroutines.
package scheduler

import "sync"

// Predecessors maps a node id to the ids of the nodes it depends on.
type Predecessors map[string][]string

// Topological yields nodes in a precomputed topological order without
// regard to runtime readiness. Used only for reactive-only runs, where no
// concurrency is needed.
type Topological struct {
	order []string
	pos   int
}

// NewTopological creates a Topological scheduler over the given order.
func NewTopological(order []string) *Topological {
	return &Topological{order: order}
}

// Next returns the next node in order, or ("", false) when exhausted.
func (s *Topological) Next() (string, bool) {
	if s.pos >= len(s.order) {
		return "", false
	}
	id := s.order[s.pos]
	s.pos++
	return id, true
}

// Dependency is the event-driven scheduler used for process runs. A node is
// ready when every one of its predecessors is in completed, or in
// streaming ∩ streamingWithChunks.
type Dependency struct {
	predecessors Predecessors

	mu                  sync.Mutex
	pending             map[string]bool
	completed           map[string]bool
	streaming           map[string]bool
	streamingWithChunks map[string]bool

	waiter chan struct{} // single-slot: closed and replaced to wake nextReady
}

// NewDependency creates a Dependency scheduler. nodeIDs is every node in the
// graph; predecessors maps each node id to its direct dependency ids.
func NewDependency(nodeIDs []string, predecessors Predecessors) *Dependency {
	pending := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		pending[id] = true
	}
	return &Dependency{
		predecessors:        predecessors,
		pending:             pending,
		completed:           make(map[string]bool),
		streaming:           make(map[string]bool),
		streamingWithChunks: make(map[string]bool),
		waiter:              make(chan struct{}),
	}
}

func (s *Dependency) isReadyLocked(id string) bool {
	for _, p := range s.predecessors[id] {
		if s.completed[p] {
			continue
		}
		if s.streaming[p] && s.streamingWithChunks[p] {
			continue
		}
		return false
	}
	return true
}

func (s *Dependency) firstReadyLocked() (string, bool) {
	for id := range s.pending {
		if s.isReadyLocked(id) {
			return id, true
		}
	}
	return "", false
}

// NextReady selects any ready pending node, removes it from pending, and
// returns it. If no pending node is ready and some remain, it blocks on a
// single-slot waiter until one becomes ready or done is closed. Returns
// ("", false) once pending is empty or done is closed.
func (s *Dependency) NextReady(done <-chan struct{}) (string, bool) {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return "", false
		}
		if id, ok := s.firstReadyLocked(); ok {
			delete(s.pending, id)
			s.mu.Unlock()
			return id, true
		}
		wait := s.waiter
		s.mu.Unlock()

		select {
		case <-wait:
		case <-done:
			return "", false
		}
	}
}

// wakeLocked closes the current waiter channel (broadcasting to any blocked
// NextReady call) and installs a fresh one. Caller holds mu.
func (s *Dependency) wakeLocked() {
	close(s.waiter)
	s.waiter = make(chan struct{})
}

// OnTaskCompleted marks id completed, removes it from the streaming sets,
// and wakes any waiter so NextReady re-checks readiness.
func (s *Dependency) OnTaskCompleted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[id] = true
	delete(s.streaming, id)
	delete(s.streamingWithChunks, id)
	s.wakeLocked()
}

// OnStreamingStart marks id as streaming (but not yet chunked) and wakes
// any waiter.
func (s *Dependency) OnStreamingStart(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming[id] = true
	s.wakeLocked()
}

// OnStreamingChunk marks id as having emitted at least one chunk, which can
// satisfy downstream readiness, and wakes any waiter.
func (s *Dependency) OnStreamingChunk(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamingWithChunks[id] = true
	s.wakeLocked()
}

// Remaining reports how many nodes are still pending.
func (s *Dependency) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
