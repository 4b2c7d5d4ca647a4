package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nainong_comment_cache_lookups_total",
		Help: "Comment cache lookups by result (hit, miss).",
	}, []string{"result"})

	commentLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nainong_comment_loads_total",
		Help: "Comment list loads by outcome.",
	}, []string{"outcome"})

	commentSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nainong_comment_submissions_total",
		Help: "Comment submissions by outcome (created, invalid, rate_limited, failed).",
	}, []string{"outcome"})
)
