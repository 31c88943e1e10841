package sim

import (
	"sync"

	"github.com/aukilabs/smartquad/geo"
)

// SyncWorld wraps a World behind a lock so the serve loop can step it while
// HTTP and websocket handlers read from it. Readers get copies, never
// pointers into the index.
type SyncWorld struct {
	mu    sync.RWMutex
	world *World
}

func NewSyncWorld(w *World) *SyncWorld {
	return &SyncWorld{world: w}
}

func (s *SyncWorld) ID() string {
	return s.world.ID()
}

func (s *SyncWorld) Bounds() geo.Boundary {
	return s.world.Bounds()
}

func (s *SyncWorld) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.world.Len()
}

func (s *SyncWorld) Spawn(count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.world.Spawn(count)
}

func (s *SyncWorld) Despawn(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.world.Despawn(id)
}

func (s *SyncWorld) Step(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.world.Step(dt)
}

// NearbyAgents returns copies of the agents within radius of (x, y).
func (s *SyncWorld) NearbyAgents(x, y, radius float64) []Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nearby := s.world.Nearby(x, y, radius)
	out := make([]Agent, 0, len(nearby))
	for _, a := range nearby {
		out = append(out, *a)
	}
	return out
}

// Snapshot returns copies of every agent.
func (s *SyncWorld) Snapshot() []Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.world.Snapshot()
}

// ClosePairs returns the id pairs of agents within tau of each other.
func (s *SyncWorld) ClosePairs(tau float64) [][2]uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pairs := s.world.ClosePairs(tau)
	out := make([][2]uint32, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, [2]uint32{p[0].ID, p[1].ID})
	}
	return out
}
