package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const msgTypeLabel = "msg_type"

var (
	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jera_stream_connected_clients",
		Help: "The number of connected streaming clients.",
	})

	receivedMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jera_stream_received_msgs",
		Help: "The number of messages received from streaming clients.",
	}, []string{msgTypeLabel})

	receivedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jera_stream_received_bytes",
		Help: "The number of bytes received from streaming clients.",
	}, []string{msgTypeLabel})

	sentMsgs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jera_stream_sent_msgs",
		Help: "The number of messages sent to streaming clients.",
	})

	sentBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jera_stream_sent_bytes",
		Help: "The number of bytes sent to streaming clients.",
	})

	receiveErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jera_stream_receive_errors",
		Help: "The errors that occurred while receiving a streaming message.",
	})

	sendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jera_stream_send_errors",
		Help: "The errors that occurred while sending a streaming message.",
	})

	sectorsLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jera_stream_sectors_loaded",
		Help: "The number of sectors sent to clients as load instructions.",
	})

	sectorsUnloaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jera_stream_sectors_unloaded",
		Help: "The number of sectors sent to clients as unload instructions.",
	})
)

func instrumentConnect() {
	connectedClients.Inc()
}

func instrumentDisconnect() {
	connectedClients.Dec()
}

func instrumentReceived(msgType string, n int) {
	receivedMsgs.With(prometheus.Labels{msgTypeLabel: msgType}).Inc()
	receivedBytes.With(prometheus.Labels{msgTypeLabel: msgType}).Add(float64(n))
}

func instrumentSent(n int) {
	sentMsgs.Inc()
	sentBytes.Add(float64(n))
}

func instrumentReceiveError() {
	receiveErrors.Inc()
}

func instrumentSendError() {
	sendErrors.Inc()
}

func instrumentSectorFlow(loaded, unloaded int) {
	sectorsLoaded.Add(float64(loaded))
	sectorsUnloaded.Add(float64(unloaded))
}
