package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/smartquad/featureflag"
	"github.com/aukilabs/smartquad/sim"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

const sendChanSize = 512

// AgentSource provides synchronized read access to the simulated agents.
type AgentSource interface {
	NearbyAgents(x, y, radius float64) []sim.Agent
	Snapshot() []sim.Agent
	ClosePairs(tau float64) [][2]uint32
}

// Sender sends a frame to the connected client.
type Sender func(Msg) error

// Handler represents a realtime connection handler.
type Handler interface {
	// Returns the id of the connected client.
	ClientID() string

	// Handles a frame received from the client. Responses go through send.
	HandleMsg(ctx context.Context, msg Msg, send Sender) error

	// Pushes the periodic view update to the client.
	Broadcast(ctx context.Context, send Sender) error

	// Releases handler resources.
	Close()
}

// RealtimeHandler streams the agents around a client-chosen point, and the
// close pairs among them when the client asks for a proximity threshold.
// Before the first subscribe frame it streams the whole world.
type RealtimeHandler struct {
	Agents AgentSource
	Flags  featureflag.FeatureFlag

	mutex    sync.Mutex
	clientID string
	watching bool
	x, y     float64
	radius   float64
	tau      float64
}

func (h *RealtimeHandler) ClientID() string {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.clientID == "" {
		h.clientID = uuid.NewString()
	}
	return h.clientID
}

func (h *RealtimeHandler) HandleMsg(ctx context.Context, msg Msg, send Sender) error {
	switch msg.Type {
	case MsgTypePing:
		return send(Msg{
			Type: MsgTypePong,
			Time: time.Now().UnixMilli(),
		})

	case MsgTypeSubscribe:
		if msg.Radius <= 0 {
			return send(Msg{
				Type:  MsgTypeError,
				Error: "radius must be positive",
			})
		}

		h.mutex.Lock()
		h.watching = true
		h.x = msg.X
		h.y = msg.Y
		h.radius = msg.Radius
		h.tau = msg.Tau
		h.mutex.Unlock()

		// Immediate update so the client does not wait a full interval.
		return h.Broadcast(ctx, send)

	default:
		return send(Msg{
			Type:  MsgTypeError,
			Error: "unsupported message type",
		})
	}
}

func (h *RealtimeHandler) Broadcast(ctx context.Context, send Sender) error {
	h.mutex.Lock()
	watching, x, y, radius, tau := h.watching, h.x, h.y, h.radius, h.tau
	h.mutex.Unlock()

	now := time.Now().UnixMilli()

	if !h.Flags.IsSet(featureflag.FlagDisableAgentBroadcast) {
		var agents []sim.Agent
		if watching {
			agents = h.Agents.NearbyAgents(x, y, radius)
		} else {
			agents = h.Agents.Snapshot()
		}

		if err := send(Msg{
			Type:   MsgTypeAgents,
			Agents: agents,
			Count:  len(agents),
			Time:   now,
		}); err != nil {
			return errors.New("sending agents update failed").Wrap(err)
		}
	}

	if watching && tau > 0 && !h.Flags.IsSet(featureflag.FlagDisablePairBroadcast) {
		pairs := h.Agents.ClosePairs(tau)
		if err := send(Msg{
			Type:  MsgTypePairs,
			Pairs: pairs,
			Count: len(pairs),
			Time:  now,
		}); err != nil {
			return errors.New("sending pairs update failed").Wrap(err)
		}
	}

	return nil
}

func (h *RealtimeHandler) Close() {}

// Handle returns a websocket handler that serves a client connection with
// the handler returned by newHandler, pushing updates every
// broadcastInterval.
func Handle(newHandler func() Handler, broadcastInterval time.Duration) websocket.Handler {
	return func(conn *websocket.Conn) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		h := newHandler()
		defer h.Close()

		instrumentClientConnect()
		defer instrumentClientDisconnect()

		sends := make(chan Msg, sendChanSize)
		send := func(m Msg) error {
			select {
			case sends <- m:
				return nil
			default:
				return errors.New("send buffer is full").
					WithTag("client_id", h.ClientID())
			}
		}

		go func() {
			defer cancel()

			for {
				select {
				case <-ctx.Done():
					return

				case m := <-sends:
					if err := Codec.Send(conn, m); err != nil {
						return
					}
				}
			}
		}()

		go func() {
			ticker := time.NewTicker(broadcastInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return

				case <-ticker.C:
					if err := h.Broadcast(ctx, send); err != nil {
						logs.Warn(errors.New("broadcast failed").
							WithTag("client_id", h.ClientID()).
							Wrap(err))
					}
				}
			}
		}()

		for {
			var msg Msg
			if err := Codec.Receive(conn, &msg); err != nil {
				return
			}

			if err := h.HandleMsg(ctx, msg, send); err != nil {
				logs.Warn(errors.New("handling message failed").
					WithTag("client_id", h.ClientID()).
					WithTag("msg_type", msg.Type).
					Wrap(err))
			}
		}
	}
}
