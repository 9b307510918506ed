package assembly

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weakform_batches_evaluated_total",
		Help: "Total cell batches evaluated and integrated",
	})

	passesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weakform_assembly_passes_total",
		Help: "Total assembly passes completed without error",
	})
)
