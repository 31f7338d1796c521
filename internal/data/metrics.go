package data

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

var (
	// mutationTotal counts recorded mutations by action and result
	mutationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riverflow_mindmap_mutation_total",
		Help: "Total mindmap mutations by action and result",
	}, []string{"action", "result"})

	// historyStepTotal counts undo and redo requests by outcome
	historyStepTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riverflow_history_step_total",
		Help: "Total undo/redo requests by direction and result",
	}, []string{"direction", "result"})

	// historyStepDuration tracks undo/redo latency including the transaction
	historyStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "riverflow_history_step_duration_seconds",
		Help:    "Undo/redo duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"direction"})
)

// metricResult classifies an error for the result label.
func metricResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNothingToUndo), errors.Is(err, ErrNothingToRedo):
		return "noop"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAccessDenied):
		return "denied"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	case errors.Is(err, ErrCorruptHistory):
		return "corrupt"
	default:
		return "error"
	}
}

func observeMutation(action model.HistoryAction, err error) {
	mutationTotal.WithLabelValues(string(action), metricResult(err)).Inc()
}

func observeHistoryStep(direction string, start time.Time, err error) {
	historyStepTotal.WithLabelValues(direction, metricResult(err)).Inc()
	historyStepDuration.WithLabelValues(direction).Observe(time.Since(start).Seconds())
}
