package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scoresSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cipherpool_scores_submitted_total",
		Help: "Total number of accepted encrypted rating submissions.",
	})
	averagesRecomputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cipherpool_averages_recomputed_total",
		Help: "Total number of encrypted average recomputations.",
	})
	operationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cipherpool_operation_errors_total",
		Help: "Total number of failed pool operations by failure class.",
	}, []string{"class"})
)
