package sim

import (
	"math"
	"math/rand"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/smartquad/geo"
	"github.com/aukilabs/smartquad/quadtree"
	"github.com/google/uuid"
)

// WorldConfig describes a simulation world.
type WorldConfig struct {
	// The rectangle agents move in.
	Bounds geo.Boundary

	// The number of agents an index cell holds before it subdivides.
	CellCapacity int

	// The half-extent below which index cells stop subdividing. Proximity
	// queries with a radius up to this value see every matching pair. Zero
	// disables the floor.
	MinCellSize float64

	// Seed for the movement randomness. Zero seeds from the clock.
	Seed int64
}

// World owns a set of moving agents and the spatial index over them.
//
// A World is not safe for concurrent use; the serve loop owns it.
type World struct {
	id     string
	bounds geo.Boundary
	tree   *quadtree.Tree[*Agent]
	agents map[uint32]*Agent
	ids    idPool
	rng    *rand.Rand
}

// NewWorld returns an empty world.
func NewWorld(cfg WorldConfig) *World {
	if cfg.CellCapacity <= 0 {
		cfg.CellCapacity = 8
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	tree := quadtree.New[*Agent](
		cfg.Bounds.CX,
		cfg.Bounds.CY,
		cfg.Bounds.HX,
		cfg.Bounds.HY,
		cfg.CellCapacity,
	)
	if cfg.MinCellSize > 0 {
		minCell := cfg.MinCellSize
		tree.SetSizeFloor(func(b geo.Boundary) bool {
			return b.NormInfty() < minCell
		})
	}

	return &World{
		id:     uuid.NewString(),
		bounds: cfg.Bounds,
		tree:   tree,
		agents: make(map[uint32]*Agent),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

// ID returns the identifier used to label this world's metrics and logs.
func (w *World) ID() string {
	return w.id
}

// Bounds returns the world rectangle.
func (w *World) Bounds() geo.Boundary {
	return w.bounds
}

// Len returns the number of live agents.
func (w *World) Len() int {
	return len(w.agents)
}

// Agent returns the agent with the given id.
func (w *World) Agent(id uint32) (*Agent, bool) {
	a, ok := w.agents[id]
	return a, ok
}

// Spawn adds count agents at uniform random positions with random headings
// and speeds.
func (w *World) Spawn(count int) error {
	half := w.bounds.NormInfty()
	for i := 0; i < count; i++ {
		a := &Agent{
			ID:      w.ids.acquire(),
			PosX:    w.bounds.CX + (w.rng.Float64()*2-1)*w.bounds.HX,
			PosY:    w.bounds.CY + (w.rng.Float64()*2-1)*w.bounds.HY,
			Heading: w.rng.Float64() * 2 * math.Pi,
			Speed:   (minSpeedRatio + w.rng.Float64()*(maxSpeedRatio-minSpeedRatio)) * half,
		}
		if err := w.tree.Insert(a); err != nil {
			w.ids.release(a.ID)
			return errors.New("spawning an agent failed").
				WithTag("world_id", w.id).
				Wrap(err)
		}
		w.agents[a.ID] = a
	}

	instrumentAgents(w.id, len(w.agents))
	logs.WithTag("world_id", w.id).
		WithTag("spawned", count).
		WithTag("agents", len(w.agents)).
		Debug("agents spawned")
	return nil
}

// Despawn removes the agent with the given id and recycles the id.
func (w *World) Despawn(id uint32) error {
	a, ok := w.agents[id]
	if !ok {
		return errors.New("agent is not in the world").
			WithTag("world_id", w.id).
			WithTag("agent_id", id)
	}
	if err := w.tree.Remove(a); err != nil {
		return errors.New("removing an agent from the index failed").
			WithTag("world_id", w.id).
			WithTag("agent_id", id).
			Wrap(err)
	}

	delete(w.agents, id)
	w.ids.release(id)
	instrumentAgents(w.id, len(w.agents))
	return nil
}

// Step advances the simulation by dt seconds. Every agent moves once, and
// the index re-homes the agents that crossed a leaf boundary during the
// same walk.
func (w *World) Step(dt float64) {
	c := w.tree.IterMut()
	for c.Next() {
		c.Point().Move(dt, w.bounds, w.rng)
	}

	// Agents are clamped to the world rectangle, so the index should never
	// drop one mid-walk. Resynchronize if it ever does.
	if w.tree.Len() != len(w.agents) {
		for id, a := range w.agents {
			if w.tree.Contains(a) {
				continue
			}
			delete(w.agents, id)
			w.ids.release(id)
			logs.Warn(errors.New("agent fell out of the index").
				WithTag("world_id", w.id).
				WithTag("agent_id", id))
		}
		instrumentAgents(w.id, len(w.agents))
	}

	instrumentStep(w.id)
}

// Nearby returns the agents within radius of (x, y).
func (w *World) Nearby(x, y, radius float64) []*Agent {
	// The mask square circumscribes the circle, slightly inflated so a point
	// sitting exactly on it does not fall to the parity test.
	r := radius * 1.0001
	mask := geo.NewPolygonMask(
		[]float64{x - r, x + r, x + r, x - r},
		[]float64{y - r, y - r, y + r, y + r},
	)

	var out []*Agent
	for a := range w.tree.Masked(&mask).Points() {
		if math.Hypot(a.PosX-x, a.PosY-y) <= radius {
			out = append(out, a)
		}
	}
	return out
}

// ClosePairs returns every unordered pair of agents within tau of each
// other. The result is complete as long as tau does not exceed the world's
// MinCellSize.
func (w *World) ClosePairs(tau float64) [][2]*Agent {
	var out [][2]*Agent
	for a, b := range w.tree.Pairs() {
		if math.Hypot(a.PosX-b.PosX, a.PosY-b.PosY) <= tau {
			out = append(out, [2]*Agent{a, b})
		}
	}
	return out
}

// Snapshot copies every agent, in index order, for use outside the
// simulation loop.
func (w *World) Snapshot() []Agent {
	out := make([]Agent, 0, len(w.agents))
	for a := range w.tree.Points() {
		out = append(out, *a)
	}
	return out
}
