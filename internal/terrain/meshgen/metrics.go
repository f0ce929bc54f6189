package meshgen

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	pathLabel = "path"

	pathCPU     = "cpu"
	pathCompute = "compute"
)

var (
	generationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quadsphere_mesh_generation_seconds",
		Help:    "The time to generate the mesh of one quad.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{
		pathLabel,
	})

	readbackRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadsphere_readback_retries",
		Help: "The number of failed compute readbacks that were dispatched again.",
	})
)

func instrumentGeneration(path string, start time.Time) {
	generationLatency.With(prometheus.Labels{
		pathLabel: path,
	}).Observe(time.Since(start).Seconds())
}

func instrumentReadbackRetry() {
	readbackRetries.Inc()
}
