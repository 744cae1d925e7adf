package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	previewsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finance_previews_created_total",
			Help: "Previews staged from uploaded documents, by kind.",
		},
		[]string{"kind"},
	)

	extractionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finance_extraction_failures_total",
			Help: "Document extraction attempts that failed, by kind.",
		},
		[]string{"kind"},
	)

	commitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finance_commits_total",
			Help: "Commit requests, by kind and outcome.",
		},
		[]string{"kind", "status"},
	)

	commitRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finance_commit_rows_total",
			Help: "Per-row commit outcomes across all statement and receipt commits.",
		},
		[]string{"outcome"},
	)
)
