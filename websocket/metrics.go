package websocket

import (
	"context"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	msgTypeLabel = "msg_type"
	errTypeLabel = "error_type"
)

var (
	wsConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connected_clients",
		Help: "The number of connected clients.",
	})

	wsReceivedMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_received_msgs",
		Help: "The number of received messages.",
	}, []string{
		msgTypeLabel,
	})

	wsSentMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_msgs",
		Help: "The number of sent messages.",
	}, []string{
		msgTypeLabel,
	})

	wsErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_errors",
		Help: "The number of handler errors.",
	}, []string{
		errTypeLabel,
	})
)

func instrumentClientConnect() {
	wsConnectedClients.Inc()
}

func instrumentClientDisconnect() {
	wsConnectedClients.Dec()
}

// HandlerWithMetrics returns a decorated version of the given handler that
// instruments the frames and errors that flow through it.
func HandlerWithMetrics(h Handler) Handler {
	return &handlerWithMetrics{Handler: h}
}

type handlerWithMetrics struct {
	Handler
}

func (h *handlerWithMetrics) HandleMsg(ctx context.Context, msg Msg, send Sender) error {
	wsReceivedMsgs.With(prometheus.Labels{
		msgTypeLabel: string(msg.Type),
	}).Inc()

	err := h.Handler.HandleMsg(ctx, msg, sendWithMetrics(send))
	if err != nil {
		wsErrors.With(prometheus.Labels{
			errTypeLabel: errors.Type(err),
		}).Inc()
	}
	return err
}

func (h *handlerWithMetrics) Broadcast(ctx context.Context, send Sender) error {
	err := h.Handler.Broadcast(ctx, sendWithMetrics(send))
	if err != nil {
		wsErrors.With(prometheus.Labels{
			errTypeLabel: errors.Type(err),
		}).Inc()
	}
	return err
}

func sendWithMetrics(send Sender) Sender {
	return func(m Msg) error {
		err := send(m)
		if err == nil {
			wsSentMsgs.With(prometheus.Labels{
				msgTypeLabel: string(m.Type),
			}).Inc()
		}
		return err
	}
}
