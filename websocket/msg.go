package websocket

import (
	"github.com/aukilabs/smartquad/sim"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// MsgType represents a message type.
type MsgType string

const (
	// Client to server.
	MsgTypePing      MsgType = "ping"
	MsgTypeSubscribe MsgType = "subscribe"

	// Server to client.
	MsgTypePong   MsgType = "pong"
	MsgTypeAgents MsgType = "agents"
	MsgTypePairs  MsgType = "pairs"
	MsgTypeError  MsgType = "error"
)

// Msg is a websocket frame, JSON-encoded on the wire.
type Msg struct {
	Type MsgType `json:"type"`

	// Subscribe: the circle to watch and the proximity threshold for pair
	// updates. A zero threshold disables pair updates.
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Radius float64 `json:"radius,omitempty"`
	Tau    float64 `json:"tau,omitempty"`

	// Server push payloads.
	Agents []sim.Agent `json:"agents,omitempty"`
	Pairs  [][2]uint32 `json:"pairs,omitempty"`
	Count  int         `json:"count,omitempty"`
	Time   int64       `json:"time,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Codec sends and receives frames as JSON text.
var Codec = websocket.Codec{
	Marshal: func(v interface{}) ([]byte, byte, error) {
		b, err := json.Marshal(v)
		return b, websocket.TextFrame, err
	},
	Unmarshal: func(data []byte, payloadType byte, v interface{}) error {
		return json.Unmarshal(data, v)
	},
}
