package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TriggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gracecam_triggers_total",
		Help: "Triggers seen, by source and how they were handled",
	}, []string{"source", "result"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gracecam_trigger_queue_depth",
		Help: "Triggers waiting for the control loop",
	})

	ActivationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gracecam_activations_total",
		Help: "Switching decisions, by action taken",
	}, []string{"action"})

	ActivationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gracecam_activation_duration_seconds",
		Help:    "Wall time of one activation including move and settle waits",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 3, 5, 10},
	})

	CameraMovesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gracecam_camera_moves_total",
		Help: "Preset recall commands, by camera and result",
	}, []string{"camera", "result"})

	DriftTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gracecam_drift_total",
		Help: "Out-of-band program changes detected on the switcher",
	})
)
