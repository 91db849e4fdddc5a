package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReadingsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vitalwatch_readings_ingested_total",
		Help: "Total number of vitals readings ingested",
	})

	BreachesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vitalwatch_breaches_detected_total",
		Help: "Total number of threshold breaches detected",
	}, []string{"metric", "severity"})

	AlertsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vitalwatch_alerts_published_total",
		Help: "Total number of alerts published to live sessions",
	})

	WSDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vitalwatch_ws_deliveries_total",
		Help: "Total number of websocket event deliveries",
	})

	WSDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vitalwatch_ws_drops_total",
		Help: "Total number of websocket clients dropped for slow consumption",
	})

	ConnectedSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vitalwatch_connected_sessions",
		Help: "Number of currently connected websocket sessions",
	})
)
