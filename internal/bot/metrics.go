package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var packetsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "meshbot_packets_received_total",
	Help: "Text packets received, by gate decision",
}, []string{"result"})

var commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "meshbot_commands_total",
	Help: "Commands dispatched, by keyword",
}, []string{"command"})

var commandPanics = promauto.NewCounter(prometheus.CounterOpts{
	Name: "meshbot_command_panics_total",
	Help: "Command handlers that panicked",
})

var repliesSent = promauto.NewCounter(prometheus.CounterOpts{
	Name: "meshbot_replies_sent_total",
	Help: "Text messages handed to the radio",
})

var sendErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "meshbot_send_errors_total",
	Help: "Text messages the radio refused",
})

var cooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "meshbot_cooldowns_total",
	Help: "Duty cycle cool downs announced",
})

var fetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "meshbot_fetch_errors_total",
	Help: "Failed weather/tide refreshes",
}, []string{"source"})

var transmissionGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "meshbot_transmission_count",
	Help: "Current duty cycle transmission count",
})
