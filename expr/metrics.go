package expr

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	supersetBuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weakform_superset_builds_total",
		Help: "Total sparsity supersets classified",
	})

	evaluatorBuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weakform_evaluator_builds_total",
		Help: "Total evaluators compiled",
	})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weakform_expr_cache_hits_total",
		Help: "Total superset and evaluator lookups served from the cache",
	})
)
