package websocket

import (
	"context"

	"github.com/aukilabs/go-tooling/pkg/logs"
)

// HandlerWithLogs returns a decorated version of the given handler that
// logs the connection lifecycle and the frames that flow through it.
func HandlerWithLogs(h Handler) Handler {
	logs.WithTag("client_id", h.ClientID()).Info("client connected")
	return &handlerWithLogs{Handler: h}
}

type handlerWithLogs struct {
	Handler
}

func (h *handlerWithLogs) HandleMsg(ctx context.Context, msg Msg, send Sender) error {
	logs.WithTag("client_id", h.ClientID()).
		WithTag("msg_type", msg.Type).
		Debug("msg received")

	return h.Handler.HandleMsg(ctx, msg, h.sendWithLogs(send))
}

func (h *handlerWithLogs) Broadcast(ctx context.Context, send Sender) error {
	return h.Handler.Broadcast(ctx, h.sendWithLogs(send))
}

func (h *handlerWithLogs) sendWithLogs(send Sender) Sender {
	return func(m Msg) error {
		logs.WithTag("client_id", h.ClientID()).
			WithTag("msg_type", m.Type).
			WithTag("count", m.Count).
			Debug("msg sent")

		return send(m)
	}
}

func (h *handlerWithLogs) Close() {
	logs.WithTag("client_id", h.ClientID()).Info("client disconnected")
	h.Handler.Close()
}
