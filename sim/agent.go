package sim

import (
	"math"
	"math/rand"

	"github.com/aukilabs/smartquad/geo"
)

// Movement parameters, relative to the world size and expressed per second
// of simulated time.
const (
	turnProbability  = 0.05
	turnMaxAngle     = 0.15
	accelProbability = 0.05
	accelMaxFactor   = 0.15

	// Speed limits as a fraction of the world half-extent per second.
	minSpeedRatio = 0.005
	maxSpeedRatio = 0.02

	// Distance from an edge, as a fraction of the half-extent, at which an
	// agent steers back toward the interior.
	edgeBufferRatio = 0.01
)

// Agent is a moving point of the simulation. Heading is in radians,
// clockwise from north, so that sin maps to east and cos to north.
type Agent struct {
	ID      uint32  `json:"id"`
	PosX    float64 `json:"x"`
	PosY    float64 `json:"y"`
	Heading float64 `json:"heading"`
	Speed   float64 `json:"speed"`
}

func (a *Agent) X() float64 { return a.PosX }
func (a *Agent) Y() float64 { return a.PosY }

// Move advances the agent by dt seconds, with occasional small random turns
// and speed changes. Agents approaching an edge of the world steer back
// inward; the final position is clamped so the agent never leaves bounds.
func (a *Agent) Move(dt float64, bounds geo.Boundary, rng *rand.Rand) {
	if rng.Float64() < turnProbability {
		a.Heading += (rng.Float64()*2 - 1) * turnMaxAngle
		a.Heading = normalizeHeading(a.Heading)
	}

	half := bounds.NormInfty()
	if rng.Float64() < accelProbability {
		a.Speed *= 1 + (rng.Float64()*2-1)*accelMaxFactor
		a.Speed = math.Min(math.Max(a.Speed, minSpeedRatio*half), maxSpeedRatio*half)
	}

	x := a.PosX + math.Sin(a.Heading)*a.Speed*dt
	y := a.PosY + math.Cos(a.Heading)*a.Speed*dt

	bufX := bounds.HX * edgeBufferRatio
	bufY := bounds.HY * edgeBufferRatio
	switch {
	case x < bounds.CX-bounds.HX+bufX:
		a.Heading = rng.Float64() * math.Pi // eastward
	case x > bounds.CX+bounds.HX-bufX:
		a.Heading = math.Pi + rng.Float64()*math.Pi // westward
	}
	switch {
	case y < bounds.CY-bounds.HY+bufY:
		a.Heading = normalizeHeading(1.5*math.Pi + rng.Float64()*math.Pi) // northward
	case y > bounds.CY+bounds.HY-bufY:
		a.Heading = 0.5*math.Pi + rng.Float64()*math.Pi // southward
	}

	x = a.PosX + math.Sin(a.Heading)*a.Speed*dt
	y = a.PosY + math.Cos(a.Heading)*a.Speed*dt

	a.PosX = math.Min(math.Max(x, bounds.CX-bounds.HX), bounds.CX+bounds.HX)
	a.PosY = math.Min(math.Max(y, bounds.CY-bounds.HY), bounds.CY+bounds.HY)
}

func normalizeHeading(h float64) float64 {
	h = math.Mod(h, 2*math.Pi)
	if h < 0 {
		h += 2 * math.Pi
	}
	return h
}
