package quadtree

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const levelLabel = "level"

var (
	quadsPerLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quadsphere_quads",
		Help: "The number of live quads per subdivision level.",
	}, []string{
		levelLabel,
	})

	renderedPatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quadsphere_rendered_patches",
		Help: "The number of active render patches.",
	})

	splitQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quadsphere_split_queue_depth",
		Help: "The number of quads waiting for or running a split.",
	})

	splitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadsphere_splits",
		Help: "The number of completed splits.",
	})

	mergesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadsphere_merges",
		Help: "The number of merges.",
	})

	generationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadsphere_generation_failures",
		Help: "The number of mesh generations that failed and were restarted.",
	})
)

func instrumentStats(s Stats) {
	for level, n := range s.PerLevel {
		quadsPerLevel.With(prometheus.Labels{
			levelLabel: strconv.Itoa(level),
		}).Set(float64(n))
	}
	renderedPatches.Set(float64(s.Rendered))
	splitQueueDepth.Set(float64(s.Queued))
}

func instrumentSplit() { splitsTotal.Inc() }

func instrumentMerge() { mergesTotal.Inc() }

func instrumentGenerationFailure() { generationFailures.Inc() }
