package http

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/smartquad/sim"
	"github.com/segmentio/encoding/json"
)

// AgentSource provides synchronized read access to the simulated agents.
type AgentSource interface {
	NearbyAgents(x, y, radius float64) []sim.Agent
	Snapshot() []sim.Agent
}

// AgentsResponse is the payload of the agents endpoint.
type AgentsResponse struct {
	Agents []sim.Agent `json:"agents"`
	Count  int         `json:"count"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	Radius float64     `json:"radius,omitempty"`
}

// HandleAgents serves the agents around a query point:
//
//	GET /agents?x=1&y=-2&radius=10
//
// Without a radius it serves the whole world.
func HandleAgents(src AgentSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		x, errX := queryFloat(q, "x")
		y, errY := queryFloat(q, "y")
		radius, errR := queryFloat(q, "radius")
		for _, err := range []error{errX, errY, errR} {
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		res := AgentsResponse{X: x, Y: y, Radius: radius}
		if radius > 0 {
			res.Agents = src.NearbyAgents(x, y, radius)
		} else {
			res.Agents = src.Snapshot()
		}
		res.Count = len(res.Agents)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(res); err != nil {
			logs.Warn(errors.New("encoding agents response failed").Wrap(err))
		}
	}
}

func queryFloat(q url.Values, name string) (float64, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Newf("%s is not a number", name).Wrap(err)
	}
	return f, nil
}
