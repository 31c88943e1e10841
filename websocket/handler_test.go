package websocket

import (
	"context"
	"strings"
	"testing"
	"time"

	"net/http/httptest"

	"github.com/aukilabs/smartquad/featureflag"
	"github.com/aukilabs/smartquad/sim"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

type staticSource struct {
	agents []sim.Agent
	pairs  [][2]uint32
}

func (s staticSource) NearbyAgents(x, y, radius float64) []sim.Agent { return s.agents }
func (s staticSource) Snapshot() []sim.Agent                         { return s.agents }
func (s staticSource) ClosePairs(tau float64) [][2]uint32            { return s.pairs }

func collectSender(out *[]Msg) Sender {
	return func(m Msg) error {
		*out = append(*out, m)
		return nil
	}
}

func TestRealtimeHandlerPing(t *testing.T) {
	h := &RealtimeHandler{Agents: staticSource{}, Flags: featureflag.New(nil)}

	var out []Msg
	err := h.HandleMsg(context.Background(), Msg{Type: MsgTypePing}, collectSender(&out))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, MsgTypePong, out[0].Type)
	require.NotZero(t, out[0].Time)
}

func TestRealtimeHandlerSubscribe(t *testing.T) {
	src := staticSource{
		agents: []sim.Agent{{ID: 1, PosX: 1, PosY: 2}, {ID: 2, PosX: 3, PosY: 4}},
		pairs:  [][2]uint32{{1, 2}},
	}
	h := &RealtimeHandler{Agents: src, Flags: featureflag.New(nil)}

	var out []Msg
	err := h.HandleMsg(context.Background(), Msg{
		Type:   MsgTypeSubscribe,
		X:      0,
		Y:      0,
		Radius: 10,
		Tau:    2,
	}, collectSender(&out))
	require.NoError(t, err)
	require.Len(t, out, 2)

	require.Equal(t, MsgTypeAgents, out[0].Type)
	require.Equal(t, src.agents, out[0].Agents)
	require.Equal(t, 2, out[0].Count)

	require.Equal(t, MsgTypePairs, out[1].Type)
	require.Equal(t, src.pairs, out[1].Pairs)
	require.Equal(t, 1, out[1].Count)
}

func TestRealtimeHandlerSubscribeBadRadius(t *testing.T) {
	h := &RealtimeHandler{Agents: staticSource{}, Flags: featureflag.New(nil)}

	var out []Msg
	err := h.HandleMsg(context.Background(), Msg{Type: MsgTypeSubscribe}, collectSender(&out))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, MsgTypeError, out[0].Type)
}

func TestRealtimeHandlerUnsubscribedBroadcastStreamsWorld(t *testing.T) {
	src := staticSource{agents: []sim.Agent{{ID: 7}}}
	h := &RealtimeHandler{Agents: src, Flags: featureflag.New(nil)}

	var out []Msg
	require.NoError(t, h.Broadcast(context.Background(), collectSender(&out)))
	require.Len(t, out, 1)
	require.Equal(t, MsgTypeAgents, out[0].Type)
	require.Equal(t, src.agents, out[0].Agents)
}

func TestRealtimeHandlerDisabledBroadcasts(t *testing.T) {
	src := staticSource{
		agents: []sim.Agent{{ID: 1}},
		pairs:  [][2]uint32{{1, 2}},
	}
	h := &RealtimeHandler{
		Agents: src,
		Flags: featureflag.New([]string{
			string(featureflag.FlagDisableAgentBroadcast),
			string(featureflag.FlagDisablePairBroadcast),
		}),
	}

	var out []Msg
	err := h.HandleMsg(context.Background(), Msg{
		Type:   MsgTypeSubscribe,
		Radius: 10,
		Tau:    2,
	}, collectSender(&out))
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestHandleServesConnection(t *testing.T) {
	src := staticSource{
		agents: []sim.Agent{{ID: 1, PosX: 1, PosY: 2}},
		pairs:  [][2]uint32{{1, 2}},
	}
	newHandler := func() Handler {
		return HandlerWithLogs(HandlerWithMetrics(&RealtimeHandler{
			Agents: src,
			Flags:  featureflag.New(nil),
		}))
	}

	srv := httptest.NewServer(Handle(newHandler, 20*time.Millisecond))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, Codec.Send(conn, Msg{
		Type:   MsgTypeSubscribe,
		Radius: 10,
		Tau:    3,
	}))

	var gotAgents, gotPairs bool
	for !gotAgents || !gotPairs {
		var msg Msg
		require.NoError(t, Codec.Receive(conn, &msg))

		switch msg.Type {
		case MsgTypeAgents:
			require.Equal(t, src.agents, msg.Agents)
			gotAgents = true
		case MsgTypePairs:
			require.Equal(t, src.pairs, msg.Pairs)
			gotPairs = true
		}
	}
}
