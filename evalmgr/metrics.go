package evalmgr

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// bufferAllocations counts buffers created because the pool had none to recycle
	bufferAllocations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weakform_buffer_allocations_total",
		Help: "Total per-point buffers allocated by execution manager pools",
	})

	// bufferAcquisitions counts every buffer handed to an evaluator
	bufferAcquisitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weakform_buffer_acquisitions_total",
		Help: "Total per-point buffers acquired from execution manager pools",
	})
)
